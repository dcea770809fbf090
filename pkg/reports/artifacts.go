package reports

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"

	"github.com/NFTX-project/accounting/pkg/ledger"
	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const (
	Artifact_Events    = "events.json"
	Artifact_Vaults    = "vaults.json"
	Artifact_Stakers   = "stakers.json"
	Artifact_Anomalies = "anomalies.json"
	Artifact_Overpaid  = "overpaid.json"
	Artifact_Underpaid = "underpaid.json"
)

var unsafeFileChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

func OwedCsvName(vs *VaultSummary) string {
	return fmt.Sprintf("owed_%s_%s.csv", unsafeFileChars.ReplaceAllString(vs.Ticker, "_"), vs.Vault)
}

func StakersCsvName(vs *VaultSummary) string {
	return fmt.Sprintf("stakers_%s_%s.csv", unsafeFileChars.ReplaceAllString(vs.Ticker, "_"), vs.Vault)
}

func RenderOwedCsv(vs *VaultSummary) ([]byte, error) {
	return gocsv.MarshalBytes(&vs.OwedExport)
}

func RenderStakersCsv(vs *VaultSummary) ([]byte, error) {
	return gocsv.MarshalBytes(&vs.Stakers)
}

type ArtifactWriter struct {
	dir    string
	logger *zap.Logger
}

func NewArtifactWriter(dir string, l *zap.Logger) *ArtifactWriter {
	return &ArtifactWriter{
		dir:    dir,
		logger: l,
	}
}

// WriteAll writes the ledger and report artifacts to the output directory and
// returns the paths written.
func (w *ArtifactWriter) WriteAll(l *ledger.Ledger, r *Report) ([]string, error) {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return nil, errors.Wrapf(err, "failed to create output directory '%s'", w.dir)
	}

	written := make([]string, 0)
	jsonArtifacts := []struct {
		name string
		data any
	}{
		{Artifact_Events, l.Events},
		{Artifact_Vaults, l.VaultList()},
		{Artifact_Stakers, l.StakerAddresses()},
		{Artifact_Anomalies, l.Anomalies.All()},
		{Artifact_Overpaid, r.Overpaid},
		{Artifact_Underpaid, r.Underpaid},
	}
	for _, a := range jsonArtifacts {
		p, err := w.writeJson(a.name, a.data)
		if err != nil {
			return written, err
		}
		written = append(written, p)
	}

	// Stakers CSVs for every reported vault, owed CSVs for underpaid ones.
	reported := make(map[string]*VaultSummary)
	order := make([]string, 0)
	for _, vs := range append(append([]*VaultSummary{}, r.Overpaid...), r.Underpaid...) {
		if _, ok := reported[vs.Vault]; !ok {
			order = append(order, vs.Vault)
		}
		reported[vs.Vault] = vs
	}
	for _, id := range order {
		vs := reported[id]
		data, err := RenderStakersCsv(vs)
		if err != nil {
			return written, errors.Wrapf(err, "failed to render stakers csv for vault '%s'", vs.Vault)
		}
		p, err := w.write(StakersCsvName(vs), data)
		if err != nil {
			return written, err
		}
		written = append(written, p)
	}
	for _, vs := range r.Underpaid {
		data, err := RenderOwedCsv(vs)
		if err != nil {
			return written, errors.Wrapf(err, "failed to render owed csv for vault '%s'", vs.Vault)
		}
		p, err := w.write(OwedCsvName(vs), data)
		if err != nil {
			return written, err
		}
		written = append(written, p)
	}

	w.logger.Sugar().Infow("Wrote artifacts",
		zap.String("dir", w.dir),
		zap.Int("files", len(written)),
	)
	return written, nil
}

func (w *ArtifactWriter) writeJson(name string, data any) (string, error) {
	b, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return "", errors.Wrapf(err, "failed to marshal %s", name)
	}
	return w.write(name, b)
}

func (w *ArtifactWriter) write(name string, data []byte) (string, error) {
	p := filepath.Join(w.dir, name)
	if err := os.WriteFile(p, data, 0o644); err != nil {
		return "", errors.Wrapf(err, "failed to write %s", p)
	}
	w.logger.Sugar().Debugw("Wrote artifact", zap.String("path", p), zap.Int("bytes", len(data)))
	return p, nil
}
