package api

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"dataviz-backend/internal/analysis"
	"dataviz-backend/internal/cleaning"
	"dataviz-backend/internal/config"
	apierrors "dataviz-backend/internal/errors"
	"dataviz-backend/internal/frame"
	"dataviz-backend/internal/ingest"
	"dataviz-backend/internal/models"
	"dataviz-backend/internal/transform"
	"dataviz-backend/internal/viz"
)

// CodeDatabase marks a failed table import.
const CodeDatabase = "DATABASE_ERROR"

type tableLoader interface {
	LoadTable(ctx context.Context, table string, limit int) (*frame.DataFrame, error)
	Close() error
}

type openTableFunc func(ctx context.Context, cfg ingest.PostgresConfig) (tableLoader, error)

func openPostgres(ctx context.Context, cfg ingest.PostgresConfig) (tableLoader, error) {
	src, err := ingest.OpenPostgres(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return src, nil
}

// Handler serves the data analysis API.
type Handler struct {
	analyzer     *analysis.Analyzer
	cleaner      *cleaning.Cleaner
	renderer     *viz.Renderer
	auth         *Authenticator
	metrics      *Metrics
	validate     *requestValidator
	errors       *apierrors.ErrorHandler
	logger       *slog.Logger
	previewRows  int
	maxBody      int64
	requireToken bool
	db           config.DatabaseConfig
	openTable    openTableFunc
}

// NewHandler wires the pipeline components from cfg.
func NewHandler(cfg *config.Config, metrics *Metrics, logger *slog.Logger) (*Handler, error) {
	renderer, err := viz.NewRenderer(cfg.VizConfig(), logger)
	if err != nil {
		return nil, err
	}
	auth, err := NewAuthenticator(cfg.Auth, logger)
	if err != nil {
		return nil, err
	}
	return &Handler{
		analyzer:     analysis.NewAnalyzer(cfg.AnalysisConfig(), logger),
		cleaner:      cleaning.New(cfg.CleaningOptions(), logger),
		renderer:     renderer,
		auth:         auth,
		metrics:      metrics,
		validate:     newRequestValidator(),
		errors:       apierrors.NewErrorHandler(logger),
		logger:       logger.With(slog.String("component", "api")),
		previewRows:  cfg.Analysis.PreviewRows,
		maxBody:      cfg.Server.MaxUploadBytes,
		requireToken: cfg.Auth.RequireToken,
		db:           cfg.Database,
		openTable:    openPostgres,
	}, nil
}

// RegisterRoutes mounts the health check and the /api routes on r.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.HealthCheck)

	r.Route("/api", func(r chi.Router) {
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			if h.requireToken {
				r.Use(h.auth.RequireToken)
			}
			r.Post("/data", h.UploadData)
			r.Post("/visualize", h.Visualize)
			r.Post("/regression", h.Regression)
			r.Post("/time_series", h.TimeSeries)
			r.Post("/group_aggregate", h.GroupAggregate)
			r.Post("/preprocess", h.Preprocess)
			if h.db.ImportEnabled {
				r.Post("/db/import", h.ImportTable)
			}
		})
	})
}

// ============================================================================
// Health
// ============================================================================

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	w.Write([]byte("OK"))
}

// ============================================================================
// Datasets
// ============================================================================

// UploadData parses a multipart CSV or XLSX upload, cleans it and returns the
// rows with statistics and a preview.
func (h *Handler) UploadData(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := r.ParseMultipartForm(h.maxBody); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.errors.HandleError(w, r, err)
			return
		}
		h.errors.HandleError(w, r, apierrors.Validation("file", "no file uploaded"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		h.errors.HandleError(w, r, apierrors.Validation("file", "no file uploaded"))
		return
	}
	defer file.Close()
	if header.Filename == "" {
		h.errors.HandleError(w, r, apierrors.Validation("file", "no file selected"))
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	df, err := ingest.Parse(header.Filename, data)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "dataset uploaded",
		slog.String("filename", header.Filename),
		slog.Int("bytes", len(data)),
		slog.Int("rows", df.Len()),
		slog.Int("columns", len(df.Columns)),
	)
	h.respondDataset(w, r, df)
}

// ImportTable loads a Postgres table and responds like UploadData.
func (h *Handler) ImportTable(w http.ResponseWriter, r *http.Request) {
	var req models.DBImportRequest
	if err := h.decode(w, r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	limit := h.db.MaxRows
	if req.Limit > 0 && req.Limit < limit {
		limit = req.Limit
	}
	if _, err := ingest.TableQuery(req.Table, limit); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.db.ConnectTimeout)
	defer cancel()

	src, err := h.openTable(ctx, ingest.PostgresConfig{
		Host:     req.Host,
		Port:     req.Port,
		User:     req.User,
		Password: req.Password,
		DBName:   req.DBName,
		SSLMode:  req.SSLMode,
	})
	if err != nil {
		h.errors.HandleError(w, r, databaseError(err))
		return
	}
	defer src.Close()

	df, err := src.LoadTable(r.Context(), req.Table, limit)
	if err != nil {
		if apierrors.IsValidation(err) {
			h.errors.HandleError(w, r, err)
			return
		}
		h.errors.HandleError(w, r, databaseError(err))
		return
	}
	h.logger.InfoContext(r.Context(), "table imported",
		slog.String("table", req.Table),
		slog.Int("rows", df.Len()),
	)
	h.respondDataset(w, r, df)
}

func databaseError(err error) *apierrors.APIError {
	return apierrors.Reply(http.StatusBadGateway, CodeDatabase, "Database import failed").With(err.Error())
}

func (h *Handler) respondDataset(w http.ResponseWriter, r *http.Request, df *frame.DataFrame) {
	cleaned, report, err := h.cleaner.Clean(df)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.metrics.datasetLoaded(cleaned.Len())

	render.JSON(w, r, models.DataResponse{
		Data:       cleaned.Records(-1),
		Columns:    cleaned.Names(),
		Preview:    transform.Preview(cleaned, h.previewRows),
		Statistics: transform.Describe(cleaned),
		Cleaning:   report,
	})
}

// ============================================================================
// Visualization
// ============================================================================

// Visualize renders one chart and returns it as a base64 PNG.
func (h *Handler) Visualize(w http.ResponseWriter, r *http.Request) {
	var req models.VisualizeRequest
	if err := h.decode(w, r, &req); err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	kind, err := viz.ParseKind(req.ChartType)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}

	var df *frame.DataFrame
	if kind.NeedsData() {
		if df, err = frameFrom(req.Data); err != nil {
			h.errors.HandleError(w, r, err)
			return
		}
	}

	image, err := h.renderer.RenderBase64(kind, df, viz.Params{
		Column:  req.Column,
		XColumn: req.XColumn,
		YColumn: req.YColumn,
		Columns: req.Columns,
		Values:  req.Values,
		Labels:  req.Labels,
	})
	h.metrics.chartRendered(kind, err)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, models.ImageResponse{Image: image})
}

// ============================================================================
// Analysis
// ============================================================================

func (h *Handler) Regression(w http.ResponseWriter, r *http.Request) {
	var req models.RegressionRequest
	df, err := h.decodeWithData(w, r, &req, func() []byte { return req.Data })
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	result, err := h.analyzer.Regression(df, req.XColumns, req.YColumn)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (h *Handler) TimeSeries(w http.ResponseWriter, r *http.Request) {
	var req models.TimeSeriesRequest
	df, err := h.decodeWithData(w, r, &req, func() []byte { return req.Data })
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	result, err := h.analyzer.TimeSeries(df, req.Column, req.PeriodsOrDefault(), req.Decompose)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (h *Handler) GroupAggregate(w http.ResponseWriter, r *http.Request) {
	var req models.GroupAggregateRequest
	df, err := h.decodeWithData(w, r, &req, func() []byte { return req.Data })
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	result, err := h.analyzer.Aggregate(df, req.GroupBy, req.AggColumn, req.AggFunc)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, result)
}

func (h *Handler) Preprocess(w http.ResponseWriter, r *http.Request) {
	var req models.PreprocessRequest
	df, err := h.decodeWithData(w, r, &req, func() []byte { return req.Data })
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	out, err := h.analyzer.Rescale(df, req.Method, req.Columns)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	render.JSON(w, r, out.ColumnMap())
}

// ============================================================================
// Auth
// ============================================================================

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	// an empty body carries no credentials and is refused by Login below
	if err := h.decodeBody(w, r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.errors.HandleError(w, r, err)
		return
	}
	token, err := h.auth.Login(req.Username, req.Password)
	if err != nil {
		h.errors.HandleError(w, r, err)
		return
	}
	h.logger.InfoContext(r.Context(), "login succeeded", slog.String("username", req.Username))
	render.JSON(w, r, models.TokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int(h.auth.ttl.Seconds()),
	})
}

// ============================================================================
// Helpers
// ============================================================================

// decode reads a size-capped JSON body into v and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v interface{}) error {
	if err := h.decodeBody(w, r, v); err != nil {
		if errors.Is(err, io.EOF) {
			return apierrors.InvalidRequest(err)
		}
		return err
	}
	return h.validate.Struct(v)
}

// decodeBody reads a size-capped JSON body into v. An empty body yields io.EOF.
func (h *Handler) decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBody)
	if err := render.DecodeJSON(r.Body, v); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) || errors.Is(err, io.EOF) {
			return err
		}
		return apierrors.InvalidRequest(err)
	}
	return nil
}

// decodeWithData decodes and validates the request, then builds the frame
// from the request's data field.
func (h *Handler) decodeWithData(w http.ResponseWriter, r *http.Request, v interface{}, data func() []byte) (*frame.DataFrame, error) {
	if err := h.decode(w, r, v); err != nil {
		return nil, err
	}
	return frameFrom(data())
}

func frameFrom(raw []byte) (*frame.DataFrame, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, apierrors.Validation("data", "is required")
	}
	return frame.FromJSON(raw)
}
