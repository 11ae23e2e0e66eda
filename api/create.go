package api

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"regexp"

	"github.com/rs/zerolog/log"
)

var sessionDirectoryRegex = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// RedeliverSession queues a staged session directory for another upload
// attempt. Directories are left behind when an association is aborted or
// when an upload fails.
func (handler *Handler) RedeliverSession(w http.ResponseWriter, r *http.Request) {
	query := normalizeQueryMapToLowercaseKeys(r.URL.Query())

	names, ok := query["directory"]
	if !ok || len(names) != 1 {
		writeJson(w, r, http.StatusBadRequest, CreateErrorResponse("InvalidParameter", "Exactly one 'directory' parameter must be given."))
		return
	}

	if err := ValidateSessionDirectoryName(names[0]); err != nil {
		writeJson(w, r, http.StatusBadRequest, CreateErrorResponse("InvalidParameter", err.Error()))
		return
	}

	dir := filepath.Join(handler.staging.RootDir(), names[0])
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			writeJson(w, r, http.StatusNotFound, CreateErrorResponse("DirectoryNotFound", fmt.Sprintf("The session directory '%s' does not exist.", names[0])))
			return
		}

		log.Error().Err(err).Str("directory", dir).Msg("Failed to inspect session directory")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	if !info.IsDir() {
		writeJson(w, r, http.StatusBadRequest, CreateErrorResponse("InvalidParameter", fmt.Sprintf("'%s' is not a session directory.", names[0])))
		return
	}

	handler.uploader.UploadDirectory(dir)

	log.Info().Str("directory", dir).Msg("Session directory queued for redelivery")
	writeJson(w, r, http.StatusAccepted, RedeliveryResponse{Directory: dir})
}

func ValidateSessionDirectoryName(name string) error {
	if !sessionDirectoryRegex.MatchString(name) {
		return fmt.Errorf("'%s' is not a valid session directory name", name)
	}

	return nil
}
