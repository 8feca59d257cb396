package knowledge

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
)

const (
	FAQFileName     = "faq_knowledge_base.json"
	TechFileName    = "tech_kb.json"
	BillingFileName = "billing_db.json"
)

//go:embed data/*.json
var embeddedData embed.FS

// FileSource reads the three JSON catalogs from Dir. An empty Dir uses the
// catalogs bundled with the binary.
type FileSource struct {
	Dir string
}

var _ Source = FileSource{}

func (s FileSource) Load(ctx context.Context) (Catalogs, error) {
	fsys, err := s.fsys()
	if err != nil {
		return Catalogs{}, err
	}

	var errs []error
	out := Catalogs{
		FAQ:     map[string]string{},
		Tech:    map[string]string{},
		Billing: map[string]BillingRecord{},
	}
	if err := readJSON(fsys, FAQFileName, &out.FAQ); err != nil {
		out.FAQ = map[string]string{}
		errs = append(errs, err)
	}
	if err := readJSON(fsys, TechFileName, &out.Tech); err != nil {
		out.Tech = map[string]string{}
		errs = append(errs, err)
	}
	if err := readJSON(fsys, BillingFileName, &out.Billing); err != nil {
		out.Billing = map[string]BillingRecord{}
		errs = append(errs, err)
	}
	return out, errors.Join(errs...)
}

func (s FileSource) fsys() (fs.FS, error) {
	if s.Dir == "" {
		return fs.Sub(embeddedData, "data")
	}
	return os.DirFS(filepath.Clean(s.Dir)), nil
}

func readJSON(fsys fs.FS, name string, dst any) error {
	raw, err := fs.ReadFile(fsys, name)
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return fmt.Errorf("decode %s: %w", name, err)
	}
	return nil
}
