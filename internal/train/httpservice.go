package train

import (
	"embed"
	"net/http"
	"text/template"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

//go:embed pages/templates/*
var templFS embed.FS

// httpStatusData is used as template data when rendering the status page.
type httpStatusData struct {
	Project                   string
	Interval                  time.Duration
	RebaseLimit               int
	CancelStalePipelines      bool
	ReassignOnPipelineFailure bool
	Eligibility               string
	Report                    *PassReport

	// CreatedAt is the time when this datastructure was created.
	CreatedAt time.Time
}

// HTTPService provides a plain-text status page of the train.
type HTTPService struct {
	train     *Train
	templates *template.Template
	logger    *zap.Logger
}

func NewHTTPService(train *Train) *HTTPService {
	return &HTTPService{
		train: train,
		templates: template.Must(
			template.New("").ParseFS(templFS, "pages/templates/*"),
		),
		logger: train.logger.Named("http_service"),
	}
}

func (h *HTTPService) RegisterHandlers(router chi.Router, endpoint string) {
	router.Get(endpoint, h.HandlerStatusFunc)
}

func (h *HTTPService) HandlerStatusFunc(respWr http.ResponseWriter, _ *http.Request) {
	data := h.train.httpStatusData()

	respWr.Header().Set("Content-Type", "text/plain; charset=utf-8")

	err := h.templates.ExecuteTemplate(respWr, "status.txt.tmpl", data)
	if err != nil {
		h.logger.Info("applying template and sending back result failed", zap.Error(err))
		http.Error(respWr, err.Error(), http.StatusInternalServerError)
		return
	}
}

func (t *Train) httpStatusData() *httpStatusData {
	return &httpStatusData{
		Project:                   t.snapshot.project,
		Interval:                  t.interval,
		RebaseLimit:               t.scheduler.RebaseLimit,
		CancelStalePipelines:      t.scheduler.CancelStalePipelines,
		ReassignOnPipelineFailure: t.policy.ReassignOnPipelineFailure,
		Eligibility:               t.snapshot.eligibility.String(),
		Report:                    t.LastReport(),
		CreatedAt:                 time.Now(),
	}
}
