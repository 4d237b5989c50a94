package wizard

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestClientUploadsModelAsMultipart(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/api/models" {
			t.Fatalf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("expected multipart file field: %v", err)
		}
		defer file.Close()
		if header.Filename != "benchy.stl" {
			t.Fatalf("unexpected filename %q", header.Filename)
		}
		contents, err := io.ReadAll(file)
		if err != nil {
			t.Fatalf("failed to read payload: %v", err)
		}
		if string(contents) != "solid benchy" {
			t.Fatalf("unexpected payload %q", contents)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"doc":{"id":"model-1"}}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to construct client: %v", err)
	}

	modelID, err := client.UploadModel(context.Background(), FileSource{
		Name: "benchy.stl",
		Size: 12,
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(strings.NewReader("solid benchy")), nil
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if modelID != "model-1" {
		t.Fatalf("unexpected model id %q", modelID)
	}
}

func TestClientCreatesQuoteAndSendsBearerToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/quotes" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer session-token" {
			t.Fatalf("expected bearer token, got %q", r.Header.Get("Authorization"))
		}
		var submission Submission
		if err := json.NewDecoder(r.Body).Decode(&submission); err != nil {
			t.Fatalf("failed to decode submission: %v", err)
		}
		if len(submission.Items) != 1 || submission.Items[0].Model != "model-1" || submission.Items[0].Quantity != 2 {
			t.Fatalf("unexpected submission %+v", submission)
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"doc":{"id":"quote-1"}}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL + "/", Token: "session-token"})
	if err != nil {
		t.Fatalf("failed to construct client: %v", err)
	}

	quoteID, err := client.CreateQuote(context.Background(), Submission{
		Items: []SubmissionItem{{Model: "model-1", Material: "mat-pla", Colour: "col-red", Process: "proc-fdm", Quantity: 2}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quoteID != "quote-1" {
		t.Fatalf("unexpected quote id %q", quoteID)
	}
}

func TestClientSurfacesServerMessageVerbatim(t *testing.T) {
	const message = "Please include a contact email so we can follow up about your quote."
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":"` + message + `"}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to construct client: %v", err)
	}

	_, err = client.CreateQuote(context.Background(), Submission{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if err.Error() != message {
		t.Fatalf("expected verbatim message, got %q", err.Error())
	}
}

func TestClientFetchOptions(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/quote-options" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{
			"materials":[{"id":"mat-pla","name":"PLA","pricePerGram":0.05}],
			"colours":[{"id":"col-red","name":"Red","finish":"regular","type":"solid","swatches":["#ff0000"]}],
			"processes":[{"id":"proc-fdm","name":"FDM"}],
			"combinations":[{"materialId":"mat-pla","colourId":"col-red"}]
		}`))
	}))
	defer server.Close()

	client, err := NewClient(ClientConfig{BaseURL: server.URL})
	if err != nil {
		t.Fatalf("failed to construct client: %v", err)
	}

	options, err := client.FetchOptions(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(options.Materials) != 1 || options.Materials[0].ID != "mat-pla" {
		t.Fatalf("unexpected materials %+v", options.Materials)
	}
	if len(options.Combinations) != 1 {
		t.Fatalf("unexpected combinations %+v", options.Combinations)
	}

	machine := NewMachine()
	machine.SetOptions(options)
	if colours := machine.ColoursFor("mat-pla"); len(colours) != 1 || colours[0] != "col-red" {
		t.Fatalf("expected fetched options to drive colour filtering, got %v", colours)
	}
}

func TestNewClientRequiresBaseURL(t *testing.T) {
	if _, err := NewClient(ClientConfig{}); err == nil {
		t.Fatalf("expected error for missing base URL")
	}
}
