package catalog

import (
	"regexp"

	"gorm.io/datatypes"
)

// ColourFinish enumerates surface finishes offered for a colour.
type ColourFinish string

const (
	ColourFinishRegular ColourFinish = "regular"
	ColourFinishMatte   ColourFinish = "matte"
	ColourFinishSilk    ColourFinish = "silk"
)

// ColourType enumerates how a colour is produced on the spool.
type ColourType string

const (
	ColourTypeSolid       ColourType = "solid"
	ColourTypeCoExtrusion ColourType = "co-extrusion"
	ColourTypeGradient    ColourType = "gradient"
)

var hexcodePattern = regexp.MustCompile(`^#([A-Fa-f0-9]{6}|[A-Fa-f0-9]{3})$`)

// ValidHexcode reports whether the value is a hex colour code including the leading #.
func ValidHexcode(value string) bool {
	return hexcodePattern.MatchString(value)
}

// Material is a printable substrate (PLA, PETG, ...) managed by staff.
// PricePerGram, when set, overrides the settings-wide default during pricing.
type Material struct {
	ID           string         `gorm:"column:id;primaryKey;size:190;not null"`
	Name         string         `gorm:"column:name;size:190;not null;uniqueIndex"`
	Description  string         `gorm:"column:description;type:text;not null;default:''"`
	PricePerGram *float64       `gorm:"column:price_per_gram"`
	Config       datatypes.JSON `gorm:"column:config"`
}

// TableName provides the explicit table binding for GORM.
func (Material) TableName() string {
	return "materials"
}

// Colour is a staff-managed spool colour with ordered display swatches.
type Colour struct {
	ID          string         `gorm:"column:id;primaryKey;size:190;not null"`
	Name        string         `gorm:"column:name;size:190;not null;uniqueIndex"`
	Description string         `gorm:"column:description;type:text;not null;default:''"`
	Finish      ColourFinish   `gorm:"column:finish;size:32;not null;default:'regular'"`
	Type        ColourType     `gorm:"column:type;size:32;not null;default:'solid'"`
	Swatches    []ColourSwatch `gorm:"foreignKey:ColourID;references:ID"`
}

// TableName provides the explicit table binding for GORM.
func (Colour) TableName() string {
	return "colours"
}

// ColourSwatch is one hexcode in a colour's ordered swatch list.
type ColourSwatch struct {
	ID       int64  `gorm:"column:id;primaryKey;autoIncrement"`
	ColourID string `gorm:"column:colour_id;size:190;not null;index"`
	Position int    `gorm:"column:position;not null;default:0"`
	Hexcode  string `gorm:"column:hexcode;size:16;not null"`
}

// TableName provides the explicit table binding for GORM.
func (ColourSwatch) TableName() string {
	return "colour_swatches"
}

// Process is a manufacturing process (FDM, SLA, ...). Inactive processes are
// hidden from customer-facing selection without deleting history.
type Process struct {
	ID     string `gorm:"column:id;primaryKey;size:190;not null"`
	Name   string `gorm:"column:name;size:190;not null;uniqueIndex"`
	Active bool   `gorm:"column:active;not null;default:true"`
}

// TableName provides the explicit table binding for GORM.
func (Process) TableName() string {
	return "processes"
}

// Vendor supplies filament spools.
type Vendor struct {
	ID   string `gorm:"column:id;primaryKey;size:190;not null"`
	Name string `gorm:"column:name;size:190;not null;uniqueIndex"`
}

// TableName provides the explicit table binding for GORM.
func (Vendor) TableName() string {
	return "vendors"
}

// Filament is a purchasable (material, colour) combination from one vendor.
// At most one active filament per (material, colour) pair is expected by
// convention; resolution takes the first active match ordered by id.
type Filament struct {
	ID         string `gorm:"column:id;primaryKey;size:190;not null"`
	Name       string `gorm:"column:name;size:190;not null"`
	MaterialID string `gorm:"column:material_id;size:190;not null;index:idx_filaments_material_colour,priority:1"`
	ColourID   string `gorm:"column:colour_id;size:190;not null;index:idx_filaments_material_colour,priority:2"`
	VendorID   string `gorm:"column:vendor_id;size:190;not null"`
	Active     bool   `gorm:"column:active;not null;default:true;index:idx_filaments_material_colour,priority:3"`
}

// TableName provides the explicit table binding for GORM.
func (Filament) TableName() string {
	return "filaments"
}

// Settings is the staff-managed singleton carrying storefront pricing
// defaults and baseline slicer configuration blobs.
type Settings struct {
	ID             int64          `gorm:"column:id;primaryKey"`
	PricePerGram   float64        `gorm:"column:price_per_gram;not null;default:0"`
	Currency       string         `gorm:"column:currency;size:8;not null;default:'USD'"`
	MachineConfig  datatypes.JSON `gorm:"column:machine_config"`
	ProcessConfig  datatypes.JSON `gorm:"column:process_config"`
	FilamentConfig datatypes.JSON `gorm:"column:filament_config"`
}

// TableName provides the explicit table binding for GORM.
func (Settings) TableName() string {
	return "settings"
}

// SettingsRowID is the fixed primary key of the settings singleton row.
const SettingsRowID int64 = 1
