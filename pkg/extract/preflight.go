package extract

import (
	"errors"
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrEmptyDocument = errors.New("document has no pages")

// Preflight reads and validates the pdf and returns its page count.
// strict selects the strict pdfcpu validation mode.
func Preflight(path string, strict bool) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	if strict {
		conf.ValidationMode = model.ValidationStrict
	}
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return 0, fmt.Errorf("pdf validation %s: %w", path, err)
	}
	if ctx.PageCount == 0 {
		return 0, fmt.Errorf("%s: %w", path, ErrEmptyDocument)
	}
	return ctx.PageCount, nil
}
