// Package httpapi exposes the portal services over REST.
package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/enerconnect/portal/internal/app/domain/application"
	"github.com/enerconnect/portal/internal/app/domain/connection"
	"github.com/enerconnect/portal/internal/app/domain/evacuation"
	"github.com/enerconnect/portal/internal/app/policy"
	"github.com/enerconnect/portal/internal/app/services/applications"
	"github.com/enerconnect/portal/internal/app/services/connections"
	"github.com/enerconnect/portal/internal/app/services/documents"
	"github.com/enerconnect/portal/internal/app/services/evacuations"
	"github.com/enerconnect/portal/internal/app/services/users"
	"github.com/enerconnect/portal/internal/auth"
	"github.com/enerconnect/portal/internal/errors"
	"github.com/enerconnect/portal/internal/metrics"
	"github.com/enerconnect/portal/internal/middleware"
	"github.com/enerconnect/portal/pkg/logger"
)

// defaultMaxUploadBytes bounds multipart bodies when the caller does not
// configure a limit (32 MiB).
const defaultMaxUploadBytes = 32 << 20

// Handler wires the portal services to their routes.
type Handler struct {
	users          *users.Service
	applications   *applications.Service
	connections    *connections.Service
	evacuations    *evacuations.Service
	documents      *documents.Service
	tokens         *auth.Manager
	log            *logger.Logger
	maxUploadBytes int64
}

// Config collects the handler's collaborators.
type Config struct {
	Users          *users.Service
	Applications   *applications.Service
	Connections    *connections.Service
	Evacuations    *evacuations.Service
	Documents      *documents.Service
	Tokens         *auth.Manager
	Logger         *logger.Logger
	MaxUploadBytes int64
}

// NewHandler creates the handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = logger.NewDefault("httpapi")
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	return &Handler{
		users:          cfg.Users,
		applications:   cfg.Applications,
		connections:    cfg.Connections,
		evacuations:    cfg.Evacuations,
		documents:      cfg.Documents,
		tokens:         cfg.Tokens,
		log:            cfg.Logger,
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Router builds the full route table with middleware applied.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.CORS, middleware.Metrics, middleware.Logging(h.log))

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/auth/register", h.register).Methods(http.MethodPost)
	api.HandleFunc("/auth/login", h.login).Methods(http.MethodPost)

	authed := api.NewRoute().Subrouter()
	authed.Use(middleware.Authenticate(h.tokens))

	authed.HandleFunc("/auth/me", h.me).Methods(http.MethodGet)

	authed.HandleFunc("/users", h.listUsers).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}", h.getUser).Methods(http.MethodGet)
	authed.HandleFunc("/users/{id}", h.updateUser).Methods(http.MethodPut)
	authed.HandleFunc("/users/{id}", h.deleteUser).Methods(http.MethodDelete)

	// Static application routes must register before the {id} wildcard.
	authed.HandleFunc("/applications/dashboard", h.dashboard).Methods(http.MethodGet)
	authed.HandleFunc("/applications/pending-subscriptions", h.pendingSubscriptions).Methods(http.MethodGet)
	authed.HandleFunc("/applications/completed-subscriptions", h.completedSubscriptions).Methods(http.MethodGet)
	authed.HandleFunc("/applications/pending", h.pendingConnections).Methods(http.MethodGet)
	authed.HandleFunc("/applications/completed-applications", h.completedConnections).Methods(http.MethodGet)
	authed.HandleFunc("/applications/connection", h.createConnection).Methods(http.MethodPost)
	authed.HandleFunc("/applications/connection/{id}", h.getConnection).Methods(http.MethodGet)
	authed.HandleFunc("/applications/connection/{id}/status", h.updateConnectionStatus).Methods(http.MethodPatch)
	authed.HandleFunc("/applications/connection/{id}", h.deleteConnection).Methods(http.MethodDelete)
	authed.HandleFunc("/applications/connection/{id}/file/{fileType}", h.downloadConnectionFile).Methods(http.MethodGet)

	authed.HandleFunc("/applications", h.listApplications).Methods(http.MethodGet)
	authed.HandleFunc("/applications", h.createApplication).Methods(http.MethodPost)
	authed.HandleFunc("/applications/{id}", h.getApplication).Methods(http.MethodGet)
	authed.HandleFunc("/applications/{id}", h.updateApplication).Methods(http.MethodPut)
	authed.HandleFunc("/applications/{id}", h.deleteApplication).Methods(http.MethodDelete)
	authed.HandleFunc("/applications/{id}/file/{fileType}", h.downloadApplicationFile).Methods(http.MethodGet)

	authed.HandleFunc("/evacuation", h.createEvacuation).Methods(http.MethodPost)
	authed.HandleFunc("/evacuation/pending", h.pendingEvacuations).Methods(http.MethodGet)
	authed.HandleFunc("/evacuation/completed", h.completedEvacuations).Methods(http.MethodGet)
	authed.HandleFunc("/evacuation/my-applications", h.myEvacuations).Methods(http.MethodGet)
	authed.HandleFunc("/evacuation/{id}", h.getEvacuation).Methods(http.MethodGet)
	authed.HandleFunc("/evacuation/{id}/status", h.updateEvacuationStatus).Methods(http.MethodPatch)
	authed.HandleFunc("/evacuation/{id}", h.deleteEvacuation).Methods(http.MethodDelete)
	authed.HandleFunc("/evacuation/{id}/file/{fileType}", h.downloadEvacuationFile).Methods(http.MethodGet)

	return r
}

// Response helpers ------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload != nil {
		json.NewEncoder(w).Encode(payload)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	svcErr := errors.GetServiceError(err)
	if svcErr == nil {
		svcErr = errors.Internal("", err)
	}
	if svcErr.Code == errors.CodeInternal {
		h.log.WithError(err).Error("request failed")
	}
	writeJSON(w, svcErr.HTTPStatus, map[string]any{"error": svcErr})
}

func (h *Handler) identity(w http.ResponseWriter, r *http.Request) (policy.Identity, bool) {
	identity, ok := middleware.GetIdentity(r.Context())
	if !ok {
		h.writeError(w, errors.Unauthorized("Authentication token required."))
	}
	return identity, ok
}

func decodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errors.Validation("Invalid request body.")
	}
	return nil
}

// readDocuments pulls every known file slot from the multipart form.
func readDocuments(form *multipart.Form, tokens map[string]bool) (map[string][]byte, error) {
	docs := make(map[string][]byte)
	for token, headers := range form.File {
		if !tokens[token] {
			return nil, errors.Validation("Unknown document type.").WithDetails("file_type", token)
		}
		if len(headers) == 0 {
			continue
		}
		f, err := headers[0].Open()
		if err != nil {
			return nil, errors.Internal("", err)
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			return nil, errors.Internal("", err)
		}
		docs[token] = data
	}
	return docs, nil
}

func slotTokens[T any](slots map[string]T) map[string]bool {
	tokens := make(map[string]bool, len(slots))
	for token := range slots {
		tokens[token] = true
	}
	return tokens
}

func (h *Handler) parseMultipart(w http.ResponseWriter, r *http.Request) bool {
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		h.writeError(w, errors.Validation("Invalid multipart form."))
		return false
	}
	return true
}

func formBool(value string) bool {
	switch value {
	case "true", "yes", "1":
		return true
	}
	return false
}

func (h *Handler) serveDocument(w http.ResponseWriter, r *http.Request, family documents.Family) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	vars := mux.Vars(r)

	doc, err := h.documents.Retrieve(r.Context(), identity, family, vars["id"], vars["fileType"])
	if err != nil {
		h.writeError(w, err)
		return
	}

	metrics.DocumentsServed.WithLabelValues(string(family)).Inc()
	w.Header().Set("Content-Type", doc.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s", doc.Filename))
	w.Write(doc.Data)
}

// Health ----------------------------------------------------------------------

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Auth and users --------------------------------------------------------------

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	var req users.RegisterRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	created, err := h.users.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}

	resp, err := h.users.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	u, err := h.users.Profile(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) listUsers(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	list, err := h.users.List(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	u, err := h.users.Get(r.Context(), identity, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) updateUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req users.UpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	u, err := h.users.Update(r.Context(), identity, mux.Vars(r)["id"], req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, u)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.users.Delete(r.Context(), identity, mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "User deleted successfully."})
}

// Generic applications ---------------------------------------------------------

func (h *Handler) createApplication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}

	form := r.MultipartForm
	docs, err := readDocuments(form, slotTokens(application.DocumentSlots))
	if err != nil {
		h.writeError(w, err)
		return
	}

	get := func(key string) string { return r.FormValue(key) }
	req := applications.CreateRequest{
		UserID:                     get("user_id"),
		ApplicationType:            get("application_type"),
		ApplicantName:              get("applicant_name"),
		PropertyAddress:            get("property_address"),
		InstallationNumber:         get("installation_number"),
		DaskPolicyNumber:           get("dask_policy_number"),
		IsTenant:                   formBool(get("is_tenant")),
		LandlordFullName:           get("landlord_full_name"),
		LandlordIDType:             get("landlord_id_type"),
		LandlordIDNumber:           get("landlord_id_number"),
		LandlordCompanyName:        get("landlord_company_name"),
		LandlordRepresentativeName: get("landlord_representative_name"),
		PowerOfAttorneyProvided:    formBool(get("power_of_attorney_provided")),
		SignatureCircularProvided:  formBool(get("signature_circular_provided")),
		TerminationIBAN:            get("termination_iban"),
		OwnershipDocumentType:      get("ownership_document_type"),
		Notes:                      get("notes"),
		Documents:                  docs,
	}

	created, err := h.applications.Create(r.Context(), identity, req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	metrics.ApplicationsSubmitted.WithLabelValues("generic").Inc()
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) listApplications(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	list, err := h.applications.List(r.Context(), identity, applications.ListFilter{
		UserID: q.Get("user_id"),
		Status: q.Get("status"),
		Type:   q.Get("application_type"),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getApplication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	app, err := h.applications.Get(r.Context(), identity, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) updateApplication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var fields map[string]any
	if err := decodeJSON(r, &fields); err != nil {
		h.writeError(w, err)
		return
	}
	app, err := h.applications.Update(r.Context(), identity, mux.Vars(r)["id"], fields)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) deleteApplication(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.applications.Delete(r.Context(), identity, mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Application deleted successfully."})
}

func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	dash, err := h.applications.GetDashboard(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dash)
}

func (h *Handler) pendingSubscriptions(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	list, err := h.applications.PendingSubscriptions(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) completedSubscriptions(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	list, err := h.applications.CompletedSubscriptions(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) downloadApplicationFile(w http.ResponseWriter, r *http.Request) {
	h.serveDocument(w, r, documents.FamilyGeneric)
}

// Connection applications ------------------------------------------------------

func (h *Handler) createConnection(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}

	docs, err := readDocuments(r.MultipartForm, slotTokens(connection.DocumentSlots))
	if err != nil {
		h.writeError(w, err)
		return
	}

	created, err := h.connections.Create(r.Context(), identity, connections.CreateRequest{
		FullName:        r.FormValue("fullName"),
		TCKN:            r.FormValue("tckn"),
		RequiresLicense: r.FormValue("requiresLicense"),
		Documents:       docs,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	metrics.ApplicationsSubmitted.WithLabelValues("connection").Inc()
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) pendingConnections(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	list, err := h.connections.Pending(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) completedConnections(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	list, err := h.connections.Completed(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getConnection(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	app, err := h.connections.Get(r.Context(), identity, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) updateConnectionStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	app, err := h.connections.UpdateStatus(r.Context(), identity, mux.Vars(r)["id"], req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) deleteConnection(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.connections.Delete(r.Context(), identity, mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Application deleted successfully."})
}

func (h *Handler) downloadConnectionFile(w http.ResponseWriter, r *http.Request) {
	h.serveDocument(w, r, documents.FamilyConnection)
}

// Evacuation applications ------------------------------------------------------

func (h *Handler) createEvacuation(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if !h.parseMultipart(w, r) {
		return
	}

	docs, err := readDocuments(r.MultipartForm, slotTokens(evacuation.DocumentSlots))
	if err != nil {
		h.writeError(w, err)
		return
	}

	get := func(key string) string { return r.FormValue(key) }
	created, err := h.evacuations.Create(r.Context(), identity, evacuations.CreateRequest{
		UserType:            get("userType"),
		FullName:            get("fullName"),
		TCKN:                get("tckn"),
		Address:             get("address"),
		PhoneNumber:         get("phoneNumber"),
		Email:               get("email"),
		EvacuationReason:    get("evacuationReason"),
		EvacuationDate:      get("evacuationDate"),
		InstallationNumber:  get("tesisatNumarasi"),
		DaskPolicyNumber:    get("daskPoliceNumarasi"),
		EarthquakeInsurance: get("zorunluDepremSigortasi"),
		IBAN:                get("iban"),
		LandlordType:        get("landlordType"),
		LandlordFullName:    get("mulkSahibiAdSoyad"),
		TaxNumber:           get("vergiNumarasi"),
		CorporateFirstName:  get("tuzelKisiAd"),
		CorporateLastName:   get("tuzelKisiSoyad"),
		CorporateTitle:      get("unvan"),
		RequiresLicense:     get("requiresLicense"),
		Documents:           docs,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	metrics.ApplicationsSubmitted.WithLabelValues("evacuation").Inc()
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) pendingEvacuations(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	list, err := h.evacuations.Pending(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) completedEvacuations(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	list, err := h.evacuations.Completed(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) myEvacuations(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	list, err := h.evacuations.MyApplications(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getEvacuation(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	app, err := h.evacuations.Get(r.Context(), identity, mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) updateEvacuationStatus(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	var req struct {
		Status string `json:"status"`
	}
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	app, err := h.evacuations.UpdateStatus(r.Context(), identity, mux.Vars(r)["id"], req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, app)
}

func (h *Handler) deleteEvacuation(w http.ResponseWriter, r *http.Request) {
	identity, ok := h.identity(w, r)
	if !ok {
		return
	}
	if err := h.evacuations.Delete(r.Context(), identity, mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Application deleted successfully."})
}

func (h *Handler) downloadEvacuationFile(w http.ResponseWriter, r *http.Request) {
	h.serveDocument(w, r, documents.FamilyEvacuation)
}
