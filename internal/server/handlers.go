package server

import (
	"os"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"scenecast/internal/logging"
	"scenecast/internal/runstore"
	"scenecast/internal/services"
)

const (
	genericErrorMessage = "An error occurred while generating the video"
	promptRequired      = "Prompt is required"
	defaultRunLimit     = 20
	maxRunLimit         = 200
)

type generateRequest struct {
	Prompt string `json:"prompt" validate:"required"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type runResponse struct {
	ID             string   `json:"id"`
	Prompt         string   `json:"prompt"`
	Status         string   `json:"status"`
	Stage          string   `json:"stage,omitempty"`
	ErrorKind      string   `json:"error_kind,omitempty"`
	ErrorMessage   string   `json:"error_message,omitempty"`
	RenderAttempts int      `json:"render_attempts"`
	Strategy       string   `json:"strategy,omitempty"`
	VideoSeconds   float64  `json:"video_seconds,omitempty"`
	AudioSeconds   float64  `json:"audio_seconds,omitempty"`
	ArchiveURL     string   `json:"archive_url,omitempty"`
	CreatedAt      string   `json:"created_at"`
	DurationSecs   *float64 `json:"duration_seconds,omitempty"`
}

func (s *Server) health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "healthy"})
}

// generate handles POST /api/generate. The response streams the run's own
// artifact; the run directory is released before streaming starts because
// the open descriptor keeps the file readable.
func (s *Server) generate(c *fiber.Ctx) error {
	var req generateRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: promptRequired})
	}
	req.Prompt = strings.TrimSpace(req.Prompt)
	if err := s.validate.Struct(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(errorResponse{Error: promptRequired})
	}

	ctx := c.UserContext()
	logger := logging.WithContext(ctx, s.logger)
	result, err := s.runner.Run(ctx, req.Prompt)
	if err != nil {
		details := services.Details(err)
		logger.Error("generation failed",
			logging.String(logging.FieldEventType, "generate_failed"),
			logging.String("error_kind", details.Kind),
			logging.String("error_message", details.Message),
		)
		return c.Status(fiber.StatusInternalServerError).JSON(errorResponse{Error: genericErrorMessage})
	}

	file, err := os.Open(result.RunArtifactPath)
	if err != nil {
		_ = result.Release()
		return err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		_ = result.Release()
		return err
	}
	if err := result.Release(); err != nil {
		logger.Debug("run release failed", logging.String(logging.FieldRunID, result.RunID), logging.Error(err))
	}
	logger.Info("generation served",
		logging.String(logging.FieldRunID, result.RunID),
		logging.Int("bytes", int(info.Size())),
	)
	c.Attachment(s.downloadName)
	c.Set(fiber.HeaderContentType, "video/mp4")
	return c.SendStream(file, int(info.Size()))
}

// listRuns handles GET /api/runs?limit=N.
func (s *Server) listRuns(c *fiber.Ctx) error {
	if s.runs == nil {
		return fiber.NewError(fiber.StatusServiceUnavailable, "run history unavailable")
	}
	limit := c.QueryInt("limit", defaultRunLimit)
	if limit <= 0 {
		limit = defaultRunLimit
	}
	if limit > maxRunLimit {
		limit = maxRunLimit
	}
	runs, err := s.runs.List(c.UserContext(), limit)
	if err != nil {
		return err
	}
	now := time.Now()
	out := make([]runResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run, now))
	}
	return c.JSON(fiber.Map{"runs": out})
}

func toRunResponse(run runstore.Run, now time.Time) runResponse {
	resp := runResponse{
		ID:             run.ID,
		Prompt:         run.Prompt,
		Status:         string(run.Status),
		Stage:          run.Stage,
		ErrorKind:      run.ErrorKind,
		ErrorMessage:   run.ErrorMessage,
		RenderAttempts: run.RenderAttempts,
		Strategy:       run.Strategy,
		VideoSeconds:   run.VideoSeconds,
		AudioSeconds:   run.AudioSeconds,
		ArchiveURL:     run.ArchiveURL,
		CreatedAt:      run.CreatedAt.UTC().Format(time.RFC3339),
	}
	if run.Status != runstore.StatusRunning {
		secs := run.Duration(now).Seconds()
		resp.DurationSecs = &secs
	}
	return resp
}
