package assets

import (
	"bytes"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var disableConfigDir sync.Once

// ValidatePDF checks that data is a readable PDF and returns its page count.
func ValidatePDF(data []byte) (int, error) {
	disableConfigDir.Do(api.DisableConfigDir)

	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	if err := api.Validate(bytes.NewReader(data), conf); err != nil {
		return 0, &ErrInvalidAsset{Reason: "unreadable PDF", Cause: err}
	}
	pages, err := api.PageCount(bytes.NewReader(data), conf)
	if err != nil {
		return 0, &ErrInvalidAsset{Reason: "unreadable PDF", Cause: err}
	}
	if pages == 0 {
		return 0, &ErrInvalidAsset{Reason: "PDF has no pages"}
	}
	return pages, nil
}
