// Command visualization serves a scraped rate workbook as JSON so the
// sheets can be browsed without a spreadsheet application.
package main

import (
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/spf13/cobra"

	"ratescraper/internal/utils"
	"ratescraper/internal/workbook"
)

// SheetList is the body of GET /.
type SheetList struct {
	Workbook string   `json:"workbook"`
	Sheets   []string `json:"sheets"`
}

// SheetRows is the body of GET /sheets/{name}.
type SheetRows struct {
	Sheet string     `json:"sheet"`
	Rows  [][]string `json:"rows"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// Server reads the workbook on every request so a running scrape shows up
// once it commits.
type Server struct {
	path   string
	logger *utils.Logger
}

func NewServer(path string, logger *utils.Logger) *Server {
	return &Server{path: path, logger: logger}
}

// Routes returns the viewer router.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(render.SetContentType(render.ContentTypeJSON))

	r.Get("/", s.listSheets)
	r.Get("/sheets/{name}", s.getSheet)
	return r
}

func (s *Server) listSheets(w http.ResponseWriter, r *http.Request) {
	sheets, err := workbook.ReadSheets(s.path)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	render.JSON(w, r, SheetList{Workbook: s.path, Sheets: sheets})
}

func (s *Server) getSheet(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	rows, err := workbook.ReadRows(s.path, name)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if rows == nil {
		rows = [][]string{}
	}
	render.JSON(w, r, SheetRows{Sheet: name, Rows: rows})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, workbook.ErrSheetNotFound), errors.Is(err, os.ErrNotExist):
		status = http.StatusNotFound
	default:
		s.logger.Error("request %s %s failed: %v", r.Method, r.URL.Path, err)
	}
	render.Status(r, status)
	render.JSON(w, r, errorResponse{Error: err.Error()})
}

func main() {
	var (
		addr       string
		configPath string
	)
	cmd := &cobra.Command{
		Use:          "visualization",
		Short:        "Serve the rate workbook as JSON",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := utils.LoadConfig(configPath)
			if err != nil {
				return err
			}
			logger, err := utils.NewLogger(config.Logging)
			if err != nil {
				return err
			}
			defer logger.Close()

			srv := &http.Server{
				Addr:              addr,
				Handler:           NewServer(config.Output.Path, logger).Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			logger.Info("Serving %s on %s", config.Output.Path, addr)
			return srv.ListenAndServe()
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "listen address")
	cmd.Flags().StringVar(&configPath, "config", "configs/config.yaml", "config file")

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
