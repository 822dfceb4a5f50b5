package analyzer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestClient_Analyze(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/analyze" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer key-123" {
			t.Errorf("missing auth token, got %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}
		if _, _, err := r.FormFile("file"); err != nil {
			t.Errorf("missing file part: %v", err)
		}
		if got := r.FormValue("document_type_hint"); got != "progress_note" {
			t.Errorf("hint = %q", got)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(Result{
			DocumentType:  "progress_note",
			OCRConfidence: 0.93,
			PageCount:     3,
			QualityScore:  0.88,
			Entities: []ExtractedEntity{
				{Text: "Hypertension", Category: "diagnosis", Confidence: 0.65, PageNumber: 1},
			},
			Dates: []ExtractedDate{
				{Date: "2024-02-10", DateType: "injury_date", Confidence: 0.9, PageNumber: 1},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key-123", 5*time.Second)
	res, err := c.Analyze(context.Background(), Request{
		FileName:    "note.pdf",
		ContentType: "application/pdf",
		Data:        []byte("%PDF-1.4"),
		TypeHint:    "progress_note",
	})
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if len(res.Entities) != 1 || res.Entities[0].Category != "diagnosis" {
		t.Errorf("entities = %+v", res.Entities)
	}
	if len(res.Dates) != 1 || res.Dates[0].DateType != "injury_date" {
		t.Errorf("dates = %+v", res.Dates)
	}
}

func TestClient_Analyze_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{"error": "unreadable scan"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "key", 5*time.Second)
	_, err := c.Analyze(context.Background(), Request{FileName: "x.pdf", Data: []byte("x")})
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestClient_Analyze_EmptyBody(t *testing.T) {
	c := NewClient("http://localhost:0", "key", time.Second)
	if _, err := c.Analyze(context.Background(), Request{FileName: "x.pdf"}); err == nil {
		t.Fatal("expected error for empty body")
	}
}
