package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ai-demos/gateway/internal/httpbase"
	"github.com/ai-demos/gateway/internal/prompts"
	"github.com/ai-demos/gateway/internal/services/customvision"
	"github.com/ai-demos/gateway/internal/services/docint"
	"github.com/ai-demos/gateway/internal/services/rag"
	"github.com/ai-demos/gateway/internal/session"
	"github.com/ai-demos/gateway/internal/storage/models"
	"github.com/ai-demos/gateway/internal/stores"
)

var (
	pdfContent = []byte("%PDF-1.4\n1 0 obj\n<<>>\nendobj\n")
	pngContent = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x02\x00\x00\x00")
)

const butano6ID = "9fc45a4c-3443-4752-a2a3-3fdcd0cbfcfb"

type testEnv struct {
	app      *fiber.App
	sessions *session.Manager
	repo     *session.MemoryRepository
}

type fakeCallLog struct {
	calls []models.BackendCall
	err   error
}

func (f *fakeCallLog) RecentCalls(_ context.Context, backend string, limit int) ([]models.BackendCall, error) {
	return f.calls, f.err
}

func (f *fakeCallLog) OutcomeCounts(context.Context, string) (map[string]int, error) {
	return map[string]int{"success": len(f.calls)}, f.err
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func newTestEnv(t *testing.T, backend http.HandlerFunc, calls CallLog, checks map[string]Pinger) *testEnv {
	t.Helper()

	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client := func(name string) *httpbase.Client {
		return httpbase.NewClient(srv.URL, httpbase.Options{Name: name, Timeout: 5 * time.Second})
	}

	repo := session.NewMemoryRepository()
	sessions := session.NewManager(repo, stores.DefaultDefaults(), time.Hour)
	chat := NewChatHandler(rag.NewService(client("rag"), prompts.Default()), sessions)

	app := fiber.New()
	Register(app.Group("/api/v1"), Set{
		DocInt:    NewDocIntHandler(docint.NewService(client("docint")), sessions),
		Vision:    NewVisionHandler(customvision.NewService(client("vision")), sessions),
		Chat:      chat,
		WebSocket: NewWebSocketHandler(chat),
		Ops:       NewOpsHandler(sessions, calls, checks),
	})

	return &testEnv{app: app, sessions: sessions, repo: repo}
}

func uploadRequest(t *testing.T, method, target, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if content != nil {
		part, err := w.CreateFormFile("file", filename)
		require.NoError(t, err)
		_, err = part.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(method, target, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return req
}

func jsonRequest(t *testing.T, method, target string, payload any) *http.Request {
	t.Helper()

	data, err := json.Marshal(payload)
	require.NoError(t, err)

	req := httptest.NewRequest(method, target, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func (e *testEnv) do(t *testing.T, req *http.Request, sessionID string) (*http.Response, map[string]any) {
	t.Helper()

	if sessionID != "" {
		req.Header.Set(SessionHeader, sessionID)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)

	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	resp.Body.Close()

	var out map[string]any
	if len(data) > 0 && json.Valid(data) {
		_ = json.Unmarshal(data, &out)
	}
	return resp, out
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func TestDocIntValidationADR(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/DocumentIntelligence/GetDocumentIntelligence", r.URL.Path)
		assert.Equal(t, "*/*", r.Header.Get("Accept"))

		file, header, err := r.FormFile("file")
		if !assert.NoError(t, err) {
			return
		}
		defer file.Close()
		assert.Equal(t, "adr.pdf", header.Filename)

		writeJSON(w, http.StatusOK, `{"legibilityStatus":true,"docType":"ADR","extractedFields":{"Matricula":"1234ABC","Peso_total":null}}`)
	}, nil, nil)

	resp, body := env.do(t, uploadRequest(t, http.MethodPost, "/api/v1/docint/validation", "adr.pdf", pdfContent), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "s-1", resp.Header.Get(SessionHeader))

	assert.Equal(t, true, body["isAdrInfoExtracted"])
	assert.Equal(t, false, body["isDocInfoExtacted"])
	assert.Equal(t, true, body["showDocumentChecks"])

	adr := body["adrPoints"].(map[string]any)
	section1 := adr["section1"].([]any)
	assert.Equal(t, "1234ABC", section1[3].(map[string]any)["value"])
}

func TestDocIntIdentityCleansName(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/DocumentIntelligence/GetIdentityDocument", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"docType":"DNI","extractedFields":{"Nombre":"NAPJUAN","Apellidos":"GARCIA"}}`)
	}, nil, nil)

	resp, body := env.do(t, uploadRequest(t, http.MethodPost, "/api/v1/docint/identity", "dni.png", pngContent), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "JUAN", body["name"])
	assert.Equal(t, "GARCIA", body["surname"])

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/docint/onboarding", nil), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "JUAN", body["name"])
}

func TestDocIntContractClassification(t *testing.T) {
	docTypes := []string{"Contrato", "Otros", "Contrato"}
	call := 0
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/DocumentIntelligence/GetContractOrInvoiceDocument", r.URL.Path)
		writeJSON(w, http.StatusOK, `{"docType":"`+docTypes[call]+`"}`)
		call++
	}, nil, nil)

	for i := range docTypes {
		name := []string{"a.pdf", "b.pdf", "c.pdf"}[i]
		resp, _ := env.do(t, uploadRequest(t, http.MethodPost, "/api/v1/docint/contract", name, pdfContent), "s-1")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/docint/classification", nil), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	byDocType := body["byDocType"].(map[string]any)
	require.Len(t, byDocType["Contrato"], 2)
	assert.Len(t, body["others"], 1)
	assert.Len(t, body["allUploadedDocuments"], 3)

	first := byDocType["Contrato"].([]any)[0].(map[string]any)
	assert.Equal(t, "a.pdf", first["name"])
	assert.True(t, strings.HasPrefix(first["src"].(string), "data:application/pdf;base64,"))

	resp, body = env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/docint/classification/select", map[string]string{"name": "b.pdf"}), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["showClasificationSelectedFileModal"])

	resp, _ = env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/docint/classification/select", map[string]string{"name": "z.pdf"}), "s-1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/docint/classification", nil), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["allUploadedDocuments"])
}

func TestDocIntMissingFile(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	}, nil, nil)

	resp, body := env.do(t, uploadRequest(t, http.MethodPost, "/api/v1/docint/validation", "", nil), "s-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "File is required", body["error"])
}

func TestBackendErrorMapping(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		expected int
	}{
		{"bad request", http.StatusBadRequest, `{}`, http.StatusBadRequest},
		{"not found", http.StatusNotFound, `{}`, http.StatusNotFound},
		{"business", httpbase.StatusBusinessError, `{"errors":["a","b"]}`, http.StatusConflict},
		{"server", http.StatusInternalServerError, `{}`, http.StatusBadGateway},
		{"timeout", http.StatusGatewayTimeout, `{}`, http.StatusGatewayTimeout},
		{"unexpected", http.StatusTeapot, `{}`, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, tt.status, tt.body)
			}, nil, nil)

			resp, body := env.do(t, uploadRequest(t, http.MethodPost, "/api/v1/docint/validation", "a.pdf", pdfContent), "s-1")
			assert.Equal(t, tt.expected, resp.StatusCode)
			assert.Equal(t, "docint", body["backend"])
			if tt.status == httpbase.StatusBusinessError {
				assert.Len(t, body["errors"], 2)
			}
		})
	}
}

func TestAuthFailurePassesThrough(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, `{"message":"token expired"}`)
	}, nil, nil)

	resp, body := env.do(t, uploadRequest(t, http.MethodPost, "/api/v1/docint/identity", "dni.png", pngContent), "s-1")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "token expired", body["message"])

	// Nothing is stored from a pass-through response.
	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/docint/onboarding", nil), "s-1")
	assert.Nil(t, body["idData"])
}

func TestVisionDetect(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/CustomVision/DetectImage", r.URL.Path)
		assert.Equal(t, "0.5", r.URL.Query().Get("upperProbabilityThreshold"))
		assert.Equal(t, "0.25", r.URL.Query().Get("lowerProbabilityThreshold"))

		writeJSON(w, http.StatusOK, `{"predictions":[
			{"probability":0.9,"tagId":"`+butano6ID+`","tagName":"Butano 6","isHighProbability":true},
			{"probability":0.8,"tagId":"`+butano6ID+`","tagName":"Butano 6","isHighProbability":true},
			{"probability":0.3,"tagId":"`+butano6ID+`","tagName":"Butano 6","isHighProbability":false}
		]}`)
	}, nil, nil)

	resp, body := env.do(t, uploadRequest(t, http.MethodPost, "/api/v1/vision/detect", "shelf.png", pngContent), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	options := body["manualOptions"].([]any)
	require.Len(t, options, 4)
	assert.Equal(t, "butano6", options[0].(map[string]any)["key"])
	assert.Equal(t, float64(3), options[0].(map[string]any)["total"])
	assert.Equal(t, float64(0), options[1].(map[string]any)["total"])
	assert.Len(t, body["highProbabilityPredictions"], 2)
	assert.Len(t, body["originalGroupedPredictions"].(map[string]any)["Butano 6"], 3)

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/vision/review/"+butano6ID, nil), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["suggestReview"])

	resp, body = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/vision", nil), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Nil(t, body["imagePrediction"])
	assert.Equal(t, 0.5, body["upperProbabilityThreshold"])
}

func TestVisionThresholds(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "0.9", r.URL.Query().Get("upperProbabilityThreshold"))
		assert.Equal(t, "0.4", r.URL.Query().Get("lowerProbabilityThreshold"))
		writeJSON(w, http.StatusOK, `{"totalAmount":40,"items":[{"id":1,"name":"Butano 6 kg","count":2,"unitPrice":20,"totalAmount":40}],"prediction":{"predictions":[]}}`)
	}, nil, nil)

	resp, _ := env.do(t, jsonRequest(t, http.MethodPut, "/api/v1/vision/thresholds",
		map[string]float64{"upperProbabilityThreshold": 0.2, "lowerProbabilityThreshold": 0.4}), "s-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := env.do(t, jsonRequest(t, http.MethodPut, "/api/v1/vision/thresholds",
		map[string]float64{"upperProbabilityThreshold": 0.9, "lowerProbabilityThreshold": 0.4}), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 0.9, body["upperProbabilityThreshold"])

	resp, body = env.do(t, uploadRequest(t, http.MethodPost, "/api/v1/vision/invoice", "cart.png", pngContent), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, float64(1), body["orderNumber"])
	assert.Equal(t, float64(40), body["cartImagePrediction"].(map[string]any)["totalAmount"])

	resp, _ = env.do(t, uploadRequest(t, http.MethodPost, "/api/v1/vision/detect?upperProbabilityThreshold=abc", "x.png", pngContent), "s-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatTurns(t *testing.T) {
	var received []rag.ChatRequest
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat", r.URL.Path)

		var req rag.ChatRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		received = append(received, req)

		writeJSON(w, http.StatusOK, `{"answer":"Toyota Corolla\n- 5 puertas"}`)
	}, nil, nil)

	payload := map[string]string{"query": "¿Cuántas puertas tiene?", "brand": "Toyota", "model": "Corolla"}
	resp, body := env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/chat", payload), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Toyota Corolla\n- 5 puertas", body["answer"])
	assert.Len(t, body["messages"], 2)

	resp, _ = env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/chat", map[string]string{"query": "¿Y el precio?"}), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, received, 2)
	assert.Contains(t, received[0].Prompt, "Toyota Corolla")
	assert.Empty(t, received[0].Messages)
	assert.Contains(t, received[1].Prompt, "Toyota Corolla", "vehicle sticks to the session")
	require.Len(t, received[1].Messages, 2)
	assert.Equal(t, models.RoleUser, received[1].Messages[0].Role)
	assert.Equal(t, models.RoleAssistant, received[1].Messages[1].Role)

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/chat", nil), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["messages"], 4)

	resp, body = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/chat", nil), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, body["messages"])
}

func TestChatValidation(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("backend must not be called")
	}, nil, nil)

	resp, _ := env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/chat", map[string]string{"query": "   "}), "s-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/chat", strings.NewReader("{"))
	req.Header.Set("Content-Type", "application/json")
	resp, _ = env.do(t, req, "s-1")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestChatBackendFailureKeepsHistory(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusInternalServerError, `{}`)
	}, nil, nil)

	resp, _ := env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/chat", map[string]string{"query": "hola"}), "s-1")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	sess, err := env.sessions.Get(context.Background(), "s-1")
	require.NoError(t, err)
	assert.Empty(t, sess.Chat.Messages)
}

func TestChatFailedVehicleSwitchKeepsSession(t *testing.T) {
	calls := 0
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls > 1 {
			writeJSON(w, http.StatusInternalServerError, `{}`)
			return
		}
		writeJSON(w, http.StatusOK, `"5 puertas"`)
	}, nil, nil)

	first := map[string]string{"query": "¿Puertas?", "brand": "Toyota", "model": "Corolla"}
	resp, _ := env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/chat", first), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	second := map[string]string{"query": "¿Y este?", "brand": "Seat", "model": "Ibiza"}
	resp, _ = env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/chat", second), "s-1")
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/chat", nil), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "Toyota", body["brand"])
	assert.Equal(t, "Corolla", body["model"])
	assert.Len(t, body["messages"], 2)

	data, ok, err := env.repo.Load(context.Background(), "s-1")
	require.NoError(t, err)
	require.True(t, ok)
	stored, err := stores.RestoreSession(data, stores.DefaultDefaults())
	require.NoError(t, err)
	require.NotNil(t, stored.Chat.Brand)
	assert.Equal(t, "Toyota", *stored.Chat.Brand)
	assert.Len(t, stored.Chat.Messages, 2)
}

func TestChatVehicleSwitchPersisted(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `"ok"`)
	}, nil, nil)

	for _, payload := range []map[string]string{
		{"query": "hola", "brand": "Toyota", "model": "Corolla"},
		{"query": "¿Y este?", "brand": "Seat", "model": "Ibiza"},
	} {
		resp, _ := env.do(t, jsonRequest(t, http.MethodPost, "/api/v1/chat", payload), "s-1")
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	data, ok, err := env.repo.Load(context.Background(), "s-1")
	require.NoError(t, err)
	require.True(t, ok)
	stored, err := stores.RestoreSession(data, stores.DefaultDefaults())
	require.NoError(t, err)
	require.NotNil(t, stored.Chat.Brand)
	assert.Equal(t, "Seat", *stored.Chat.Brand)
	assert.Len(t, stored.Chat.Messages, 2, "history restarts with the new car")
}

func TestSessionHeaderIsMinted(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, nil)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/vision", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(SessionHeader))
}

func TestSessionSnapshotAndReset(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, `{"docType":"DNI"}`)
	}, nil, nil)

	env.do(t, uploadRequest(t, http.MethodPost, "/api/v1/docint/identity", "dni.png", pngContent), "s-1")

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "s-1", body["id"])
	assert.NotNil(t, body["onboarding"].(map[string]any)["idData"])

	resp, _ = env.do(t, httptest.NewRequest(http.MethodPost, "/api/v1/session/reset", nil), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/session", nil), "s-1")
	assert.Nil(t, body["onboarding"].(map[string]any)["idData"])

	resp, _ = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/session", nil), "s-1")
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Equal(t, 0, env.sessions.Len())
}

func TestParticularChecks(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, nil)

	resp, body := env.do(t, jsonRequest(t, http.MethodPut, "/api/v1/docint/particular/checks",
		map[string]any{"sectionId": 1, "pointId": 1, "validated": true}), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	pending := len(body["pendingRequired"].([]any))

	resp, _ = env.do(t, jsonRequest(t, http.MethodPut, "/api/v1/docint/particular/checks",
		map[string]any{"sectionId": 9, "pointId": 1, "validated": true}), "s-1")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, body = env.do(t, httptest.NewRequest(http.MethodDelete, "/api/v1/docint/particular", nil), "s-1")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["pendingRequired"], pending+1)
}

func TestParticularChecksConcurrentReads(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, nil)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/docint/particular", nil)
			if i%2 == 0 {
				req = jsonRequest(t, http.MethodPut, "/api/v1/docint/particular/checks",
					map[string]any{"sectionId": 1, "pointId": 1, "validated": i%4 == 0})
			}
			req.Header.Set(SessionHeader, "s-1")

			resp, err := env.app.Test(req, -1)
			if !assert.NoError(t, err) {
				return
			}
			defer resp.Body.Close()
			assert.Equal(t, http.StatusOK, resp.StatusCode)

			var body map[string]any
			assert.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
			assert.NotNil(t, body["washingDocChecks"])
		}(i)
	}
	wg.Wait()
}

func TestViews(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, nil)

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/views", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["views"], 12)

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/views?path=/stratesys-cars/shop", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "shop", body["name"])

	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/views?path=/nope", nil), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCalls(t *testing.T) {
	disabled := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, nil)
	resp, _ := disabled.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/calls", nil), "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	log := &fakeCallLog{calls: []models.BackendCall{{ID: "c1", Backend: "rag", Outcome: "success"}}}
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {}, log, nil)
	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/calls?backend=rag&limit=5", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, body["calls"], 1)
	assert.Equal(t, float64(1), body["outcomes"].(map[string]any)["success"])

	log.err = errors.New("locked")
	resp, _ = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/calls", nil), "")
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}

func TestHealthAndReady(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, map[string]Pinger{
		"sqlite": pingerFunc(func(context.Context) error { return nil }),
	})

	resp, body := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "healthy", body["status"])

	resp, body = env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil), "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ready", body["status"])

	failing := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, map[string]Pinger{
		"redis": pingerFunc(func(context.Context) error { return errors.New("connection refused") }),
	})
	resp, body = failing.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/ready", nil), "")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "connection refused", body["failed"].(map[string]any)["redis"])
}

func TestWebSocketRequiresUpgrade(t *testing.T) {
	env := newTestEnv(t, func(w http.ResponseWriter, r *http.Request) {}, nil, nil)

	resp, _ := env.do(t, httptest.NewRequest(http.MethodGet, "/api/v1/ws/chat", nil), "")
	assert.Equal(t, http.StatusUpgradeRequired, resp.StatusCode)
}
