package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"tenf/portal/internal/auth"
	"tenf/portal/internal/common"
	"tenf/portal/internal/constants"
	"tenf/portal/internal/logging"
	"tenf/portal/internal/middleware"
)

const maxUploadBytes = 10 << 20

func respondWithSuccess[T any](w http.ResponseWriter, statusCode int, data *T) {
	common.RespondSuccess(w, statusCode, data)
}

// respondWithError logs the failure with the request identity, then writes
// the mapped status.
func respondWithError(w http.ResponseWriter, r *http.Request, err error) {
	var actor string
	if p := auth.GetPrincipal(r.Context()); p != nil {
		actor = p.ActorID()
	}
	logging.WithRequest(middleware.RequestID(r.Context()), actor, r.URL.Path).Infow("Request rejected",
		"status_code", common.StatusFor(err),
		"error", err.Error(),
	)
	common.RespondError(w, err)
}

func decodeJSON(r *http.Request, v interface{}) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return common.Validationf("request body is empty")
		}
		return common.Validationf("%s: %v", constants.MsgInvalidJSON, err)
	}
	return nil
}

// readUpload returns the "file" part of a multipart form.
func readUpload(r *http.Request) (string, []byte, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return "", nil, common.Validationf("invalid multipart form: %v", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return "", nil, common.Validationf("missing file field")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return "", nil, common.Validationf("failed to read upload: %v", err)
	}
	return header.Filename, data, nil
}

// forceRequested reads ?force=true. Only founders may force a write into a
// closed month.
func forceRequested(r *http.Request) (bool, error) {
	raw := r.URL.Query().Get("force")
	if raw == "" {
		return false, nil
	}
	force, err := strconv.ParseBool(raw)
	if err != nil {
		return false, common.Validationf("force must be a boolean")
	}
	if !force {
		return false, nil
	}
	if _, err := auth.RequirePermission(r.Context(), auth.PermEvaluationForce); err != nil {
		return false, err
	}
	return true, nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, common.Validationf("%s must be a non-negative integer", name)
	}
	return n, nil
}
