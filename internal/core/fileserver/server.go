package fileserver

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog/log"
)

// Server streams packaged job archives. Paths are confined to the job
// root; anything escaping it is rejected.
type Server struct {
	basePath string
}

func NewServer(basePath string) *Server {
	abs, _ := filepath.Abs(basePath)
	return &Server{basePath: abs}
}

// Serve streams the file at path as an attachment. Range requests are
// handled by http.ServeContent.
func (s *Server) Serve(w http.ResponseWriter, r *http.Request, path string) {
	fullPath, _ := filepath.Abs(filepath.Clean(path))
	if !strings.HasPrefix(fullPath, s.basePath+string(filepath.Separator)) {
		http.Error(w, "invalid path", http.StatusBadRequest)
		return
	}

	f, err := os.Open(fullPath)
	if err != nil {
		log.Debug().Err(err).Str("path", fullPath).Msg("archive not found")
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		http.Error(w, "file not found", http.StatusNotFound)
		return
	}

	name := filepath.Base(fullPath)
	w.Header().Set("Content-Type", "application/zip")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, name))
	http.ServeContent(w, r, name, info.ModTime(), f)
}
