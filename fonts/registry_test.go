package fonts

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
)

func newTestRegistry(t *testing.T, opts Options) *Registry {
	t.Helper()
	r, err := NewRegistry(opts)
	require.NoError(t, err)
	return r
}

func TestLookupEmbedded(t *testing.T) {
	r := newTestRegistry(t, Options{})

	f, err := r.Lookup("Go", "Bold")
	require.NoError(t, err)
	assert.Equal(t, "Go", f.Family)
	assert.Equal(t, "Bold", f.Style)
	assert.Empty(t, f.Path)
	assert.NotNil(t, f.OpenType())

	f, err = r.Lookup("latin modern roman", "italic")
	require.NoError(t, err)
	assert.Equal(t, FamilyLatinRoman, f.Family)
	assert.Equal(t, "Italic", f.Style)
}

func TestLookupErrors(t *testing.T) {
	r := newTestRegistry(t, Options{})

	_, err := r.Lookup("Droid Sans", "Regular")
	require.Error(t, err)
	assert.Equal(t, "Unknown font family: Droid Sans", err.Error())

	_, err = r.Lookup("Go", "Non-exist")
	require.Error(t, err)
	assert.Equal(t, "Unknown font style: Non-exist for font Go", err.Error())

	var le *LookupError
	require.ErrorAs(t, err, &le)
	assert.False(t, le.UnknownFamily)
}

func TestEmbeddedMonoIsConsolidated(t *testing.T) {
	r := newTestRegistry(t, Options{})
	assert.NotContains(t, r.Families(), "Go Mono")

	f, err := r.Lookup("Go", "Mono / Bold")
	require.NoError(t, err)
	assert.Equal(t, "Mono / Bold", f.Style)
	_, err = r.Lookup("Go", "Mono")
	require.NoError(t, err)
}

func TestDefaultFont(t *testing.T) {
	r := newTestRegistry(t, Options{DefaultFamily: FamilyLatinMono, DefaultStyle: "Regular"})
	fam, style := r.Default()
	assert.Equal(t, FamilyLatinMono, fam)
	assert.Equal(t, "Regular", style)

	// a missing default falls back to the first listed family, every time
	for range 3 {
		r = newTestRegistry(t, Options{DefaultFamily: "Nope", DefaultStyle: "Book"})
		fam, style = r.Default()
		assert.Equal(t, FamilyGo, fam)
		assert.Equal(t, "Regular", style)
	}

	f, err := r.DefaultFont()
	require.NoError(t, err)
	assert.Equal(t, FamilyGo, f.Family)
}

func TestListOrder(t *testing.T) {
	r := newTestRegistry(t, Options{})
	list := r.List()
	require.NotEmpty(t, list)
	assert.Equal(t, []string{FamilyGo, FamilyLatinMono, FamilyLatinRoman}, r.Families())
	assert.Equal(t, "Regular", list[0].Styles[0])
	assert.Equal(t, []string{"Regular", "Bold", "Bold Italic", "Italic", "Mono", "Mono / Bold"}, list[0].Styles)
}

func TestEmptyStyleMeansFirstListed(t *testing.T) {
	r := newTestRegistry(t, Options{})
	f, err := r.Lookup("Go", "")
	require.NoError(t, err)
	assert.Equal(t, "Regular", f.Style)
}

func TestConsolidate(t *testing.T) {
	fams := map[string]map[string]source{
		"DejaVu Sans":           {"Book": {path: "a"}, "Bold": {path: "b"}},
		"DejaVu Sans Condensed": {"Regular": {path: "c"}, "Bold": {path: "d"}},
		"DejaVu Serif":          {"Book": {path: "e"}},
	}
	consolidate(fams)

	require.Len(t, fams, 2)
	assert.Contains(t, fams["DejaVu Sans"], "Condensed")
	assert.Contains(t, fams["DejaVu Sans"], "Condensed / Bold")
	assert.Equal(t, "d", fams["DejaVu Sans"]["Condensed / Bold"].path)
	assert.Contains(t, fams, "DejaVu Serif")
}

func TestScanDirectory(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "mono.TTF"), gomono.TTF, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.ttf"), []byte("nope"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("x"), 0o644))

	r := newTestRegistry(t, Options{NoEmbedded: true, Dirs: []string{dir, filepath.Join(dir, "missing")}})
	assert.Equal(t, []string{"Go Mono"}, r.Families())

	f, err := r.Lookup("Go Mono", "Regular")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "mono.TTF"), f.Path)
	assert.NotNil(t, f.OpenType())
}

func TestNoFonts(t *testing.T) {
	_, err := NewRegistry(Options{NoEmbedded: true, Dirs: []string{t.TempDir()}})
	assert.Error(t, err)
}

func TestConcurrentLookupParsesOnce(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "regular.ttf"), goregular.TTF, 0o644))
	r := newTestRegistry(t, Options{NoEmbedded: true, Dirs: []string{dir}})

	var wg sync.WaitGroup
	got := make([]*Font, 32)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f, err := r.Lookup("Go", "Regular")
			if err == nil {
				got[i] = f
			}
		}()
	}
	wg.Wait()
	for _, f := range got {
		require.NotNil(t, f)
		assert.Same(t, got[0].OpenType(), f.OpenType())
	}
}

func TestWatcherReloads(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "regular.ttf"), goregular.TTF, 0o644))
	opts := Options{NoEmbedded: true, Dirs: []string{dir}}
	store := NewStore(newTestRegistry(t, opts))

	w, err := NewWatcher(store, opts)
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond

	ctx, cancel := context.WithCancel(t.Context())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	_, err = store.Lookup("Go", "Mono")
	require.Error(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "mono.ttf"), gomono.TTF, 0o644))
	require.Eventually(t, func() bool {
		_, err := store.Lookup("Go", "Mono")
		return err == nil
	}, 5*time.Second, 20*time.Millisecond)
}

func TestCaseInsensitiveLookupIsStable(t *testing.T) {
	r := &Registry{families: map[string]map[string]source{
		"Acme":  {"Regular": {data: goregular.TTF}},
		"ACME":  {"Regular": {data: gomono.TTF}, "bold": {data: gomono.TTF}, "Bold": {data: goregular.TTF}},
		"acme2": {"Regular": {data: goregular.TTF}},
	}}
	for range 50 {
		f, err := r.Lookup("acme", "regular")
		require.NoError(t, err)
		assert.Equal(t, "ACME", f.Family)
		assert.Equal(t, "Regular", f.Style)

		f, err = r.Lookup("acme", "BOLD")
		require.NoError(t, err)
		assert.Equal(t, "Bold", f.Style)
	}
	assert.Equal(t, []string{"Regular", "Bold", "bold"}, sortStyles(r.families["ACME"]))
}
