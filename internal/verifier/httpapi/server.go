// Package httpapi exposes the verifier over HTTP: the storage event hook,
// a direct verification endpoint, the admin camera enrollment surface and a
// health probe the camera units use as their connectivity check.
package httpapi

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/photolock/photolock/internal/envelope"
	"github.com/photolock/photolock/internal/logging"
	"github.com/photolock/photolock/internal/verifier/auth"
	"github.com/photolock/photolock/internal/verifier/models"
	"github.com/photolock/photolock/internal/verifier/registry"
	"github.com/photolock/photolock/internal/verifier/verify"
)

type Server struct {
	service *verify.Service
	cameras registry.CameraRepository
	secret  []byte
	log     logging.Logger
}

func NewServer(service *verify.Service, cameras registry.CameraRepository, secret []byte, log logging.Logger) *Server {
	return &Server{
		service: service,
		cameras: cameras,
		secret:  secret,
		log:     log.With("module", "httpapi"),
	}
}

// Router wires the endpoints. The admin subtree sits behind the bearer
// token middleware; everything else is open to the devices.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.HandleFunc("/v1/events", s.handleEvents).Methods(http.MethodPost)
	r.HandleFunc("/v1/verify", s.handleVerify).Methods(http.MethodPost)

	admin := r.PathPrefix("/v1/cameras").Subrouter()
	admin.Use(auth.Middleware(s.secret))
	admin.HandleFunc("/{number}", s.handleRegisterCamera).Methods(http.MethodPut)

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

// storageEvent mirrors the S3 notification document delivered by the
// bucket's event hook.
type storageEvent struct {
	Records []struct {
		S3 struct {
			Bucket struct {
				Name string `json:"name"`
			} `json:"bucket"`
			Object struct {
				Key string `json:"key"`
			} `json:"object"`
		} `json:"s3"`
	} `json:"Records"`
}

// handleEvents runs the pipeline for every object in the notification. The
// response is always 200; per-object diagnostics ride in the results.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	var event storageEvent
	if err := json.NewDecoder(r.Body).Decode(&event); err != nil {
		http.Error(w, "bad event document", http.StatusBadRequest)
		return
	}

	results := make([]verify.Result, 0, len(event.Records))
	for _, record := range event.Records {
		res := s.service.ProcessObject(r.Context(), record.S3.Bucket.Name, record.S3.Object.Key)
		if res.Errors != "" {
			s.log.Warn(r.Context(), "pipeline diagnostics", "key", record.S3.Object.Key, "errors", res.Errors)
		}
		results = append(results, res)
	}

	writeJSON(w, results)
}

type verifyRequest struct {
	Media string `json:"media"`
	Ext   string `json:"ext"`
}

// handleVerify checks raw media bytes against the registry. Used for
// re-verification of material that already left the pipeline.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad request body", http.StatusBadRequest)
		return
	}

	media, err := base64.StdEncoding.DecodeString(req.Media)
	if err != nil {
		http.Error(w, "media must be base64", http.StatusBadRequest)
		return
	}
	if req.Ext == "" {
		req.Ext = "png"
	}

	res := s.service.Process(r.Context(), media, nil, req.Ext)
	writeJSON(w, res)
}

// handleRegisterCamera stores the PEM public key for a camera number. The
// body is the PEM itself; it must parse before anything is written.
func (s *Server) handleRegisterCamera(w http.ResponseWriter, r *http.Request) {
	number := mux.Vars(r)["number"]

	pemBytes, err := io.ReadAll(io.LimitReader(r.Body, 1<<16))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return
	}

	if _, err := envelope.ParsePublicKeyPEM(pemBytes); err != nil {
		http.Error(w, "body is not an rsa public key", http.StatusBadRequest)
		return
	}

	if err := s.cameras.Register(r.Context(), &models.Camera{Number: number, PublicKey: pemBytes}); err != nil {
		s.log.Error(r.Context(), "camera registration failed", "number", number, "error", err.Error())
		http.Error(w, "registration failed", http.StatusInternalServerError)
		return
	}

	s.log.Info(r.Context(), "camera enrolled", "number", number)
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}
