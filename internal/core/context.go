package core

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
)

// RunContext, tek bir save/load çalışmasının bağlamını tutar.
// Standart Go "context" paketini sarmalar ve çalışmaya özel alanlar ekler.
type RunContext struct {
	context.Context

	// Çalışma kimliği; Operation Log kayıtlarını birbirine bağlar.
	RunID string

	Logger Logger
	UI     UI

	// Hedef denetleyici adresi (fleet modunda her hedef için ayrı)
	Target string

	// Eğer true ise, hiçbir değişiklik yapılmaz, sadece plan gösterilir.
	DryRun bool

	Stdout io.Writer
	Stderr io.Writer
}

// NewRunContext, temel bir bağlam oluşturur.
func NewRunContext(ctx context.Context, logger Logger, ui UI) *RunContext {
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = NopLogger{}
	}
	if ui == nil {
		ui = &NoOpUI{}
	}
	return &RunContext{
		Context: ctx,
		RunID:   uuid.NewString(),
		Logger:  logger,
		UI:      ui,
		Stdout:  os.Stdout,
		Stderr:  os.Stderr,
	}
}

// ForTarget returns a copy bound to one controller with its own run id.
func (c *RunContext) ForTarget(target string) *RunContext {
	n := *c
	n.Target = target
	n.RunID = uuid.NewString()
	n.Logger = c.Logger.With("target", target)
	return &n
}
