// ABOUTME: Outbound WhatsApp handlers: profile detail messages and horoscope uploads
// ABOUTME: Also serves stored horoscope files and reports Cloud API configuration

package api

import (
	"errors"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/2389/horoscope-desk/internal/store"
	"github.com/2389/horoscope-desk/internal/whatsapp"
)

// Profile fields that can be sent, in message order.
const (
	FieldName     = "name"
	FieldPhone    = "phone"
	FieldWhatsApp = "whatsapp"
	FieldAddress  = "address"
)

var detailFields = []struct {
	key   string
	label string
}{
	{FieldName, "Name"},
	{FieldPhone, "Phone"},
	{FieldWhatsApp, "WhatsApp"},
	{FieldAddress, "Address"},
}

// emptyValue stands in for a selected field with no value.
const emptyValue = "—"

// unsafeFilename matches anything outside the generated upload name alphabet.
var unsafeFilename = regexp.MustCompile(`[^a-zA-Z0-9._-]`)

type detailValues struct {
	Name     *string `json:"name"`
	Phone    *string `json:"phone"`
	WhatsApp *string `json:"whatsapp"`
	Address  *string `json:"address"`
}

func (v detailValues) get(key string) string {
	var p *string
	switch key {
	case FieldName:
		p = v.Name
	case FieldPhone:
		p = v.Phone
	case FieldWhatsApp:
		p = v.WhatsApp
	case FieldAddress:
		p = v.Address
	}
	if p == nil {
		return ""
	}
	return strings.TrimSpace(*p)
}

type sendDetailsRequest struct {
	RegistrationID string          `json:"registration_id"`
	WhatsApp1      string          `json:"whatsapp_1"`
	WhatsApp2      string          `json:"whatsapp_2"`
	WhatsApp3      string          `json:"whatsapp_3"`
	WhatsApp4      string          `json:"whatsapp_4"`
	WhatsApp5      string          `json:"whatsapp_5"`
	Fields         map[string]bool `json:"fields"`
	Payload        *detailValues   `json:"payload"`
	// SendViaAPI also delivers the text through the Cloud API.
	SendViaAPI bool `json:"send_via_api"`
}

func (r sendDetailsRequest) numbers() []string {
	return whatsapp.NormalizeNumbers(r.WhatsApp1, r.WhatsApp2, r.WhatsApp3, r.WhatsApp4, r.WhatsApp5)
}

type chatLink struct {
	Number string `json:"number"`
	URL    string `json:"url"`
}

type apiResult struct {
	Number    string `json:"number"`
	OK        bool   `json:"ok"`
	MessageID string `json:"id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type sendDetailsResponse struct {
	OK            bool        `json:"ok"`
	WhatsAppLinks []chatLink  `json:"whatsappLinks"`
	APIResults    []apiResult `json:"apiResults,omitempty"`
}

type failedSend struct {
	Number string `json:"number"`
	Error  string `json:"error"`
}

type uploadResponse struct {
	OK             bool         `json:"ok"`
	Path           string       `json:"path"`
	URL            string       `json:"url"`
	WhatsAppSent   bool         `json:"whatsappSent"`
	WhatsAppError  string       `json:"whatsappError,omitempty"`
	WhatsAppLink   *string      `json:"whatsappLink"`
	SentTo         []string     `json:"sentTo,omitempty"`
	Failed         []failedSend `json:"failed,omitempty"`
	RegistrationID string       `json:"registration_id,omitempty"`
}

type whatsappStatusResponse struct {
	Configured bool `json:"configured"`
}

// buildDetailMessage renders one "Label: value" line per selected field.
func buildDetailMessage(values detailValues, selected []string) string {
	lines := make([]string, 0, len(selected))
	for _, f := range detailFields {
		if !contains(selected, f.key) {
			continue
		}
		v := values.get(f.key)
		if v == "" {
			v = emptyValue
		}
		lines = append(lines, f.label+": "+v)
	}
	return strings.Join(lines, "\n")
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}

// selectedFields returns the known fields set to true, in message order.
func selectedFields(fields map[string]bool) []string {
	var out []string
	for _, f := range detailFields {
		if fields[f.key] {
			out = append(out, f.key)
		}
	}
	return out
}

func valuesFromProfile(p *store.Registration) detailValues {
	name := p.Name
	return detailValues{
		Name:     &name,
		Phone:    p.Phone,
		WhatsApp: p.WhatsAppNumber,
		Address:  p.Address,
	}
}

// handleSendProfileDetails handles POST /api/send-profile-details.
func (h *Handler) handleSendProfileDetails(w http.ResponseWriter, r *http.Request) {
	var req sendDetailsRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	regID := strings.TrimSpace(req.RegistrationID)
	numbers := req.numbers()
	fields := selectedFields(req.Fields)

	if regID == "" {
		sendJSONError(w, http.StatusBadRequest, "Profile ID required")
		return
	}
	if len(numbers) == 0 {
		sendJSONError(w, http.StatusBadRequest, "At least one WhatsApp number required")
		return
	}
	if len(fields) == 0 {
		sendJSONError(w, http.StatusBadRequest, "Select at least one field to send")
		return
	}

	profile, err := h.store.GetRegistrationByProfileID(r.Context(), regID)
	if errors.Is(err, store.ErrNotFound) {
		sendJSONError(w, http.StatusNotFound, "Profile not found")
		return
	}
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	values := valuesFromProfile(profile)
	if req.Payload != nil {
		values = *req.Payload
	}
	text := buildDetailMessage(values, fields)

	resp := sendDetailsResponse{OK: true, WhatsAppLinks: make([]chatLink, 0, len(numbers))}
	for _, num := range numbers {
		resp.WhatsAppLinks = append(resp.WhatsAppLinks, chatLink{Number: num, URL: whatsapp.ChatLink(num, text)})
	}
	if req.SendViaAPI {
		resp.APIResults = h.sendTexts(r, numbers, text)
	}

	for _, num := range numbers {
		if err := h.store.RecordProfileDetailSend(r.Context(), regID, num, fields); err != nil {
			h.writeError(w, r, err)
			return
		}
	}
	h.logger.Info("profile details sent", "registration_id", regID, "recipients", len(numbers), "fields", fields)
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) sendTexts(r *http.Request, numbers []string, text string) []apiResult {
	results := make([]apiResult, 0, len(numbers))
	for _, num := range numbers {
		if h.messenger == nil || !h.messenger.Configured() {
			results = append(results, apiResult{Number: num, Error: whatsapp.ErrNotConfigured.Error()})
			continue
		}
		id, err := h.messenger.SendText(r.Context(), num, text)
		if err != nil {
			h.logger.Warn("whatsapp text send failed", "number", num, "error", err)
			results = append(results, apiResult{Number: num, Error: err.Error()})
			continue
		}
		results = append(results, apiResult{Number: num, OK: true, MessageID: id})
	}
	return results
}

// uploadExtension keeps the client's extension when it is safe to serve.
func uploadExtension(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ext == "" || ext == "." || unsafeFilename.MatchString(ext) {
		return ".pdf"
	}
	return ext
}

func (h *Handler) fileURL(relativePath string) string {
	return strings.TrimRight(h.baseURL, "/") + relativePath
}

// handleUploadHoroscope handles POST /api/upload-horoscope (multipart).
func (h *Handler) handleUploadHoroscope(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		sendJSONError(w, http.StatusBadRequest, "Horoscope file required")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		sendJSONError(w, http.StatusBadRequest, "Horoscope file required")
		return
	}
	defer file.Close()
	if header.Size == 0 {
		sendJSONError(w, http.StatusBadRequest, "Horoscope file required")
		return
	}

	regID := strings.TrimSpace(r.FormValue("registration_id"))
	raw := make([]string, 0, whatsapp.MaxRecipients)
	for i := 1; i <= whatsapp.MaxRecipients; i++ {
		raw = append(raw, r.FormValue("whatsapp_"+strconv.Itoa(i)))
	}
	numbers := whatsapp.NormalizeNumbers(raw...)

	filename := uuid.NewString() + uploadExtension(header.Filename)
	if err := h.saveUpload(filename, file); err != nil {
		h.writeError(w, r, err)
		return
	}
	relativePath := "/uploads/" + filename
	resp := uploadResponse{
		OK:             true,
		Path:           relativePath,
		URL:            h.fileURL(relativePath),
		RegistrationID: regID,
	}

	if regID != "" {
		found, err := h.store.SetHoroscopePath(r.Context(), regID, relativePath)
		if err != nil {
			h.removeUpload(filename)
			h.writeError(w, r, err)
			return
		}
		if !found {
			h.logger.Warn("horoscope uploaded for unknown profile", "registration_id", regID, "path", relativePath)
		}
	}

	if len(numbers) > 0 {
		h.deliverHoroscope(r, &resp, numbers, header.Filename)
	}
	h.logger.Info("horoscope uploaded", "path", relativePath, "registration_id", regID, "sent", len(resp.SentTo))
	writeJSON(w, http.StatusOK, resp)
}

// deliverHoroscope sends the uploaded document to each number through the
// Cloud API, or prepares a chat link when the API is not configured.
func (h *Handler) deliverHoroscope(r *http.Request, resp *uploadResponse, numbers []string, originalName string) {
	linkText := "Horoscope: " + resp.URL
	if h.messenger == nil || !h.messenger.Configured() {
		link := whatsapp.ChatLink(numbers[0], linkText)
		resp.WhatsAppLink = &link
		return
	}

	docName := originalName
	if docName == "" {
		docName = "horoscope.pdf"
	}
	var errs []string
	for _, num := range numbers {
		if err := h.messenger.SendDocument(r.Context(), num, resp.URL, docName, "Horoscope"); err != nil {
			h.logger.Warn("whatsapp document send failed", "number", num, "error", err)
			resp.Failed = append(resp.Failed, failedSend{Number: num, Error: err.Error()})
			errs = append(errs, err.Error())
			if resp.WhatsAppLink == nil {
				link := whatsapp.ChatLink(num, linkText)
				resp.WhatsAppLink = &link
			}
			continue
		}
		resp.SentTo = append(resp.SentTo, num)
		resp.WhatsAppSent = true
		if resp.RegistrationID != "" {
			if err := h.store.RecordHoroscopeSend(r.Context(), resp.RegistrationID, num, resp.Path); err != nil {
				h.logger.Error("logging horoscope send failed", "number", num, "error", err)
			}
		}
	}
	resp.WhatsAppError = strings.Join(errs, "; ")
}

func (h *Handler) saveUpload(filename string, src io.Reader) error {
	if err := os.MkdirAll(h.uploadsDir, 0755); err != nil {
		return err
	}
	dst, err := os.Create(filepath.Join(h.uploadsDir, filename))
	if err != nil {
		return err
	}
	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func (h *Handler) removeUpload(filename string) {
	if err := os.Remove(filepath.Join(h.uploadsDir, filename)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		h.logger.Warn("removing orphaned upload", "file", filename, "error", err)
	}
}

// handleServeUpload handles GET /api/serve-upload/{filename} and /uploads/{filename}.
func (h *Handler) handleServeUpload(w http.ResponseWriter, r *http.Request) {
	if h.uploadsDir == "" {
		sendJSONError(w, http.StatusNotFound, "Uploads not configured")
		return
	}
	name := r.PathValue("filename")
	if name == "" || unsafeFilename.MatchString(name) || strings.Trim(name, ".") == "" {
		sendJSONError(w, http.StatusBadRequest, "Invalid filename")
		return
	}

	f, err := os.Open(filepath.Join(h.uploadsDir, name))
	if err != nil {
		sendJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil || info.IsDir() {
		sendJSONError(w, http.StatusNotFound, msgNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `inline; filename="`+name+`"`)
	http.ServeContent(w, r, name, info.ModTime(), f)
}

// handleWhatsAppStatus handles GET /api/whatsapp-status.
func (h *Handler) handleWhatsAppStatus(w http.ResponseWriter, _ *http.Request) {
	configured := h.messenger != nil && h.messenger.Configured()
	writeJSON(w, http.StatusOK, whatsappStatusResponse{Configured: configured})
}
