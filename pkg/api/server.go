// Package api provides the REST API server for midiscore
package api

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/james-see/midiscore/pkg/config"
	"github.com/james-see/midiscore/pkg/converter"
	"github.com/james-see/midiscore/pkg/logger"
	"github.com/james-see/midiscore/pkg/pianoroll"
	"github.com/james-see/midiscore/pkg/score"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title midiscore API
// @version 1.0
// @description API for decoding, converting and resampling Standard MIDI Files
// @host localhost:8080
// @BasePath /api/v1

// maxUpload caps request bodies
const maxUpload = 32 << 20

// Server holds the handlers' shared settings
type Server struct {
	cfg *config.Config
}

// NewServer creates a server using cfg for defaults
func NewServer(cfg *config.Config) *Server {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Server{cfg: cfg}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(), corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/formats", listFormats)
		v1.POST("/parse", s.handleParse)
		v1.POST("/summary", s.handleSummary)
		v1.POST("/resample", s.handleResample)
		v1.POST("/dump", s.handleDump)
		v1.POST("/pianoroll", s.handlePianoroll)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	return r
}

// StartServer starts the API server on the configured port
func StartServer(cfg *config.Config) error {
	s := NewServer(cfg)
	addr := fmt.Sprintf(":%d", s.cfg.Server.Port)
	logger.GetLogger().Info("starting API server", "addr", addr)
	return s.Router().Run(addr)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.GetLogger().Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start))
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// statusFor maps library errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, converter.ErrDecode),
		errors.Is(err, score.ErrRange),
		errors.Is(err, score.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, status int, err error) {
	c.JSON(status, gin.H{"error": err.Error()})
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "midiscore",
	})
}

// listFormats godoc
// @Summary List supported formats
// @Description Returns supported formats, time units and text encodings
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]string
// @Router /api/v1/formats [get]
func listFormats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"formats":        []string{"midi", "json"},
		"conversions":    converter.GetSupportedConversions(),
		"units":          []string{"tick", "quarter", "second"},
		"text_encodings": converter.SupportedTextEncodings(),
		"pianoroll":      []string{string(pianoroll.ModeOnset), string(pianoroll.ModeFrame), string(pianoroll.ModeOffset)},
	})
}

// readUpload returns the bytes of the multipart "file" field and its name
func readUpload(c *gin.Context) ([]byte, string, error) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		return nil, "", errors.New("no file uploaded")
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(io.LimitReader(file, maxUpload+1))
	if err != nil {
		return nil, "", errors.New("failed to read file")
	}
	if len(data) > maxUpload {
		return nil, "", fmt.Errorf("file larger than %d bytes", maxUpload)
	}
	return data, header.Filename, nil
}

// parseOptions reads sanitize and encoding query parameters over the config
func (s *Server) parseOptions(c *gin.Context) (converter.ParseOptions, error) {
	opts := s.cfg.ParseOptions()
	if v, ok := c.GetQuery("sanitize"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid sanitize value %q", v)
		}
		opts.Sanitize = b
	}
	if v := c.Query("encoding"); v != "" {
		opts.TextEncoding = v
	}
	return opts, nil
}

// parseUpload decodes the uploaded MIDI file
func (s *Server) parseUpload(c *gin.Context) (*score.Score[score.Tick], string, bool) {
	opts, err := s.parseOptions(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return nil, "", false
	}
	data, name, err := readUpload(c)
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return nil, "", false
	}
	sc, err := converter.ParseMIDIWithOptions(data, opts)
	if err != nil {
		fail(c, statusFor(err), err)
		return nil, "", false
	}
	return sc, name, true
}

func outputName(input, ext string) string {
	base := strings.TrimSuffix(filepath.Base(input), filepath.Ext(input))
	if base == "" || base == "." {
		base = "converted"
	}
	return base + ext
}

// handleParse godoc
// @Summary Decode MIDI to a JSON score
// @Description Upload a MIDI file and receive the score in the requested time unit
// @Tags convert
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file to decode"
// @Param unit query string false "tick, quarter or second (default from config)"
// @Param sanitize query bool false "Clamp out-of-range values instead of failing"
// @Param encoding query string false "Meta text encoding"
// @Success 200 {object} converter.Document
// @Failure 400 {object} map[string]string
// @Router /api/v1/parse [post]
func (s *Server) handleParse(c *gin.Context) {
	unit, err := score.ParseUnit(c.DefaultQuery("unit", s.cfg.Unit))
	if err != nil {
		fail(c, http.StatusBadRequest, err)
		return
	}
	sc, _, ok := s.parseUpload(c)
	if !ok {
		return
	}
	data, err := converter.EncodeJSONAs(sc, unit, s.cfg.MinDuration)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.Data(http.StatusOK, "application/json", data)
}

// handleSummary godoc
// @Summary Summarise a MIDI file
// @Description Upload a MIDI file and receive event counts and its length
// @Tags info
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/summary [post]
func (s *Server) handleSummary(c *gin.Context) {
	sc, _, ok := s.parseUpload(c)
	if !ok {
		return
	}
	secs, err := converter.Convert[score.Second](sc, 0)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"ticks_per_quarter": sc.TicksPerQuarter,
		"summary":           sc.Summary(),
		"end_tick":          sc.EndTime(),
		"end_seconds":       secs.EndTime(),
	})
}

// handleResample godoc
// @Summary Resample a MIDI file
// @Description Upload a MIDI file and receive it re-encoded at a new ticks-per-quarter
// @Tags convert
// @Accept multipart/form-data
// @Produce audio/midi
// @Param file formData file true "MIDI file"
// @Param tpq query int false "Target ticks per quarter (default from config)"
// @Param min_dur query int false "Minimum note duration in target ticks"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/resample [post]
func (s *Server) handleResample(c *gin.Context) {
	tpq, err := strconv.Atoi(c.DefaultQuery("tpq", strconv.Itoa(int(s.cfg.TicksPerQuarter))))
	if err != nil || tpq < 1 || tpq > 0x7FFF {
		fail(c, http.StatusBadRequest, fmt.Errorf("tpq must be an integer in [1, 32767]"))
		return
	}
	minDur, err := strconv.Atoi(c.DefaultQuery("min_dur", "0"))
	if err != nil || minDur < 0 {
		fail(c, http.StatusBadRequest, fmt.Errorf("min_dur must be a non-negative integer"))
		return
	}
	sc, name, ok := s.parseUpload(c)
	if !ok {
		return
	}
	resampled, err := converter.Resample(sc, int32(tpq), score.Tick(minDur))
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	data, err := converter.DumpMIDI(resampled)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", outputName(name, ".mid")))
	c.Data(http.StatusOK, "audio/midi", data)
}

// handleDump godoc
// @Summary Encode a JSON score to MIDI
// @Description Post a JSON score document and receive a MIDI file
// @Tags convert
// @Accept json
// @Produce audio/midi
// @Param document body converter.Document true "Score document"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/dump [post]
func (s *Server) handleDump(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxUpload))
	if err != nil {
		fail(c, http.StatusBadRequest, errors.New("failed to read body"))
		return
	}
	sc, err := converter.DecodeJSON(body)
	if err != nil {
		// anything wrong with a posted document is the client's fault
		fail(c, http.StatusBadRequest, err)
		return
	}
	data, err := converter.DumpMIDI(sc)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename=score.mid")
	c.Data(http.StatusOK, "audio/midi", data)
}

// handlePianoroll godoc
// @Summary Render a piano roll
// @Description Upload a MIDI file and receive a PNG piano roll
// @Tags render
// @Accept multipart/form-data
// @Produce image/png
// @Param file formData file true "MIDI file"
// @Param mode query string false "onset, frame or offset"
// @Param width query int false "Image width"
// @Param height query int false "Image height"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Router /api/v1/pianoroll [post]
func (s *Server) handlePianoroll(c *gin.Context) {
	width, err1 := strconv.Atoi(c.DefaultQuery("width", strconv.Itoa(s.cfg.Pianoroll.Width)))
	height, err2 := strconv.Atoi(c.DefaultQuery("height", strconv.Itoa(s.cfg.Pianoroll.Height)))
	if err := errors.Join(err1, err2); err != nil || width > 8192 || height > 8192 {
		fail(c, http.StatusBadRequest, errors.New("width and height must be integers up to 8192"))
		return
	}
	sc, _, ok := s.parseUpload(c)
	if !ok {
		return
	}
	roll, err := pianoroll.New(sc, pianoroll.Options{
		Resolution: score.Tick(s.cfg.Pianoroll.Resolution),
		Mode:       pianoroll.Mode(c.Query("mode")),
		Velocity:   true,
	})
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	img, err := roll.Image(width, height)
	if err != nil {
		fail(c, statusFor(err), err)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		fail(c, http.StatusInternalServerError, err)
		return
	}
	c.Data(http.StatusOK, "image/png", buf.Bytes())
}
