package capture

import (
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCatalogForBand(t *testing.T) {
	catalog := NewCatalog()
	for _, name := range []string{"lb_iq_0_0_05.txt", "hb_iq_0_1_00.txt", "hb_iq_0_0_00.txt"} {
		catalog.Add(name)
	}

	assert.Equal(t, []Entry{
		{Path: "hb_iq_0_0_00.txt", Label: "0_0_00"},
		{Path: "hb_iq_0_1_00.txt", Label: "0_1_00"},
	}, catalog.ForBand("hb"))
	assert.Equal(t, []Entry{{Path: "lb_iq_0_0_05.txt", Label: "0_0_05"}}, catalog.ForBand("lb"))
	assert.Empty(t, catalog.ForBand("xb"))
}

func TestCatalogOrdersByGain(t *testing.T) {
	catalog := NewCatalog()
	for _, name := range []string{"hb_iq_0_0_10.txt", "hb_iq_0_0_02.txt", "hb_iq_1_0_00.txt", "hb_iq_0_7_00.txt"} {
		catalog.Add(filepath.Join("iq_dump", name))
	}
	catalog.Add(filepath.Join("iq_dump", "hb_iq_0_0_02.txt"))

	var labels []string
	for _, entry := range catalog.ForBand("hb") {
		labels = append(labels, entry.Label)
	}
	assert.Equal(t, []string{"0_0_02", "0_0_10", "0_7_00", "1_0_00"}, labels)
	assert.Equal(t, 4, catalog.Len())
}

func TestCatalogConcurrentAdd(t *testing.T) {
	catalog := NewCatalog()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			catalog.Add(filepath.Join("d", string(rune('a'+i))+".txt"))
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 20, catalog.Len())
}

func TestScanDir(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"lb_iq_0_0_01.txt", "hb_iq_0_0_01.txt", "notes.md"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	catalog, err := ScanDir(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "hb_iq_0_0_01.txt"), filepath.Join(dir, "lb_iq_0_0_01.txt")}, catalog.Paths())

	_, err = ScanDir(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestLabel(t *testing.T) {
	assert.Equal(t, "0_1_00", Label("hb_iq_0_1_00.txt"))
	assert.Equal(t, "1", Label("hb_iq_1.txt"))
	assert.Equal(t, "", Label("hb.txt"))
}
