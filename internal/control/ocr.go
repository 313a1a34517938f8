package control

import (
	"context"
	"os/exec"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// ErrNoReading is returned when the reader ran but found nothing on the
// snapshot (exit status 1 by contract).
var ErrNoReading = errors.New("ocr: no reading")

// OCR invokes an external recognizer against snapshot files. The program
// takes --image, --config and --key, prints the recognized value on
// stdout and exits 1 when it finds none.
type OCR struct {
	Program    string
	ConfigPath string
	Key        string

	// Timeout bounds one invocation; zero means 30s.
	Timeout time.Duration
}

// Invoke runs the recognizer synchronously.
func (o OCR) Invoke(ctx context.Context, imagePath string) (string, error) {
	timeout := o.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, o.Program,
		"--image", imagePath,
		"--config", o.ConfigPath,
		"--key", o.Key)

	out, err := cmd.Output()
	if err != nil {
		var exit *exec.ExitError
		if errors.As(err, &exit) && exit.ExitCode() == 1 {
			return "", ErrNoReading
		}
		return "", errors.Wrapf(err, "ocr: running %s", o.Program)
	}
	return strings.TrimSpace(string(out)), nil
}

// InvokeAsync runs the recognizer on a detached goroutine and logs the
// outcome. Snapshot handling must never stall the display, so there is
// no result channel; watch the log.
func (o OCR) InvokeAsync(imagePath string) {
	if o.Program == "" {
		return
	}
	go func() {
		value, err := o.Invoke(context.Background(), imagePath)
		switch {
		case errors.Is(err, ErrNoReading):
			log.Info("ocr: no reading in %s", imagePath)
		case err != nil:
			log.Warn("%v", err)
		default:
			log.Info("ocr: %s -> %s", imagePath, value)
		}
	}()
}
