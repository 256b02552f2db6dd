package office

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kavach/engine/internal/engine"
	"github.com/kavach/engine/internal/metrics"
	"github.com/kavach/engine/internal/resilience"
	"github.com/kavach/engine/pkg/logger"
)

// GotenbergClient cliente HTTP de Gotenberg con límite de peticiones por segundo
// y circuit breaker
type GotenbergClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	breaker *resilience.Breaker
}

// NewGotenbergClient crea el cliente. rps <= 0 desactiva el límite.
func NewGotenbergClient(baseURL string, rps float64, timeout time.Duration) *GotenbergClient {
	limit := rate.Inf
	burst := 1
	if rps > 0 {
		limit = rate.Limit(rps)
		burst = int(rps)
		if burst < 1 {
			burst = 1
		}
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &GotenbergClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		limiter: rate.NewLimiter(limit, burst),
		breaker: resilience.New("gotenberg", resilience.DefaultConfig(), logger.NewNop()),
	}
}

// WithBreaker reemplaza el circuit breaker por defecto
func (c *GotenbergClient) WithBreaker(b *resilience.Breaker) *GotenbergClient {
	c.breaker = b
	return c
}

// Health consulta /health
func (c *GotenbergClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gotenberg health returned %d", resp.StatusCode)
	}
	return nil
}

// Convert envía in a /forms/libreoffice/convert y escribe el PDF en out.
// Devuelve el intento para que el llamador lo resuelva como cualquier otra cadena.
func (c *GotenbergClient) Convert(ctx context.Context, in, out string) engine.Attempt {
	start := time.Now()
	err := c.breaker.Execute(func() error { return c.convert(ctx, in, out) })

	a := engine.Attempt{Tool: "gotenberg", Err: err, Duration: time.Since(start)}
	var netErr net.Error
	switch {
	case err == nil:
		a.Outcome = engine.Succeeded
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &netErr) && netErr.Timeout():
		a.Outcome = engine.TimedOut
	case isConnRefused(err), errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		a.Outcome = engine.NotInstalled
	default:
		a.Outcome = engine.Failed
	}

	metrics.EngineAttemptsTotal.WithLabelValues("office_pdf", a.Tool, a.Outcome.String()).Inc()
	metrics.EngineDurationSeconds.WithLabelValues("office_pdf", a.Tool).Observe(a.Duration.Seconds())
	return a
}

func (c *GotenbergClient) convert(ctx context.Context, in, out string) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("gotenberg rate limit: %w", err)
	}

	file, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("failed to open input file: %w", err)
	}
	defer file.Close()

	// el cuerpo se transmite por un pipe para no cargar el documento en memoria
	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)
	go func() {
		part, err := writer.CreateFormFile("files", filepath.Base(in))
		if err == nil {
			_, err = io.Copy(part, file)
		}
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/forms/libreoffice/convert", pr)
	if err != nil {
		pr.CloseWithError(err)
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request to Gotenberg: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("gotenberg returned error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	dst, err := os.Create(out)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if _, err := io.Copy(dst, resp.Body); err != nil {
		dst.Close()
		return fmt.Errorf("failed to write output file: %w", err)
	}
	return dst.Close()
}

func isConnRefused(err error) bool {
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}
