package metrics

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/michelemendel/haintsec/internal/scan"
)

func TestRecorder_WriteTextfile(t *testing.T) {
	o := scan.FailAll(scan.ReasonToolNotFound, "missing")
	o.Subdomains = scan.Success(scan.StageSubdomains, []string{"a.example.com", "b.example.com"})
	o.Subdomains.Elapsed = 1500 * time.Millisecond

	rec, err := NewRecorder()
	require.NoError(t, err)
	rec.Observe(o)

	path := filepath.Join(t.TempDir(), "haintsec.prom")
	require.NoError(t, rec.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, `haintsec_stage_duration_seconds{stage="subdomains"} 1.5`)
	assert.Contains(t, out, `haintsec_findings{stage="subdomains"} 2`)
	assert.Contains(t, out, `haintsec_stage_outcome{reason="",stage="subdomains",status="success"} 1`)
	assert.Contains(t, out, `haintsec_stage_outcome{reason="ToolNotFound",stage="sql",status="failed"} 1`)
	assert.Contains(t, out, `haintsec_findings{stage="ports"} 0`)
}

func TestRecorder_WriteTextfileBadPath(t *testing.T) {
	rec, err := NewRecorder()
	require.NoError(t, err)
	assert.Error(t, rec.WriteTextfile(filepath.Join(t.TempDir(), "missing", "x.prom")))
}
