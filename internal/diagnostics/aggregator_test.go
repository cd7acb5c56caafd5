package diagnostics

import (
	"bytes"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ferrors "git.home.luguber.info/inful/phest/internal/foundation/errors"
)

func newTestAggregator(buf *bytes.Buffer) *Aggregator {
	logger := slog.New(slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
	return New(WithLogger(logger))
}

func viewKeys(views []SectionView) []string {
	keys := make([]string, 0, len(views))
	for _, v := range views {
		keys = append(keys, v.Key)
	}
	return keys
}

func TestAggregator_BuildAndErrorScenario(t *testing.T) {
	var buf bytes.Buffer
	a := newTestAggregator(&buf)
	require.NoError(t, a.Register("build", "Build"))
	require.NoError(t, a.Register("err", "Errors", WithType(TypeDanger)))

	require.NoError(t, a.Append("build", "ok1"))

	assert.False(t, a.HasError())
	assert.Equal(t, []string{"build"}, viewKeys(a.View()))

	require.NoError(t, a.Append("err", "bad"))

	assert.True(t, a.HasError())
	assert.Equal(t, []string{"build", "err"}, viewKeys(a.View()))
}

func TestAggregator_ViewGroupsByFixedTypeOrder(t *testing.T) {
	a := New()
	require.NoError(t, a.Register("notes", "Notes", WithType(TypeInfo)))
	require.NoError(t, a.Register("pages", "Pages", WithType(TypePrimary)))
	require.NoError(t, a.Register("errors", "Errors", WithType(TypeDanger)))
	require.NoError(t, a.Register("built", "Built"))
	require.NoError(t, a.Register("copied", "Copied"))
	require.NoError(t, a.Register("empty", "Empty", WithType(TypeDanger)))

	for _, key := range []string{"notes", "pages", "errors", "copied", "built"} {
		require.NoError(t, a.Append(key, key+" message"))
	}

	assert.Equal(t, []string{"built", "copied", "errors", "pages", "notes"}, viewKeys(a.View()))
}

func TestAggregator_SortedSectionDoesNotMutateStoredOrder(t *testing.T) {
	a := New()
	require.NoError(t, a.Register("files", "Files", Sorted()))
	for _, m := range []string{"zeta.html", "alpha.html", "mid.html"} {
		require.NoError(t, a.Append("files", m))
	}

	views := a.View()
	require.Len(t, views, 1)
	assert.Equal(t, []string{"alpha.html", "mid.html", "zeta.html"}, views[0].Messages)

	stored, ok := a.Section("files")
	require.True(t, ok)
	assert.Equal(t, []string{"zeta.html", "alpha.html", "mid.html"}, stored.Messages)
}

func TestAggregator_UnsortedSectionKeepsAppendOrder(t *testing.T) {
	a := New()
	require.NoError(t, a.Register("log", "Log"))
	require.NoError(t, a.Append("log", "b"))
	require.NoError(t, a.Append("log", "a"))

	assert.Equal(t, []string{"b", "a"}, a.View()[0].Messages)
}

func TestAggregator_AppendUnknownSection(t *testing.T) {
	var buf bytes.Buffer
	a := newTestAggregator(&buf)

	err := a.Append("nope", "lost message")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownSection))
	assert.True(t, ferrors.HasCategory(err, ferrors.CategoryDiagnostics))
	assert.Contains(t, buf.String(), "level=WARN")
	assert.Contains(t, buf.String(), "section=nope")
	assert.Empty(t, a.View())
	assert.False(t, a.HasError())
}

func TestAggregator_DangerWithoutMessagesIsNotAnError(t *testing.T) {
	a := New()
	require.NoError(t, a.Register("builderror", "Build errors", WithType(TypeDanger)))
	assert.False(t, a.HasError())

	require.NoError(t, a.Register("notice", "Notice", WithType(TypeInfo)))
	require.NoError(t, a.Append("notice", "fyi"))
	assert.False(t, a.HasError())
}

func TestAggregator_ReRegisterKeepsPositionAndClearsMessages(t *testing.T) {
	a := New()
	require.NoError(t, a.Register("first", "First"))
	require.NoError(t, a.Register("second", "Second"))
	require.NoError(t, a.Append("first", "old"))
	require.NoError(t, a.Append("second", "kept"))

	require.NoError(t, a.Register("first", "First again"))
	require.NoError(t, a.Append("first", "new"))

	assert.Equal(t, []string{"first", "second"}, a.Keys())
	views := a.View()
	require.Len(t, views, 2)
	assert.Equal(t, "First again", views[0].Title)
	assert.Equal(t, []string{"new"}, views[0].Messages)
}

func TestAggregator_RegisterRejectsInvalidInput(t *testing.T) {
	var buf bytes.Buffer
	a := newTestAggregator(&buf)

	err := a.Register("", "No key")
	assert.True(t, errors.Is(err, ErrInvalidSection))

	err = a.Register("warn", "Warnings", WithType(MessageType("warning")))
	assert.True(t, errors.Is(err, ErrInvalidSection))
	assert.False(t, a.Has("warn"))
	assert.Contains(t, buf.String(), "Ignoring invalid section registration")
}

func TestAggregator_Appendf(t *testing.T) {
	a := New()
	require.NoError(t, a.Register("build", "Build"))
	require.NoError(t, a.Appendf("build", "wrote %d pages", 3))

	s, _ := a.Section("build")
	assert.Equal(t, []string{"wrote 3 pages"}, s.Messages)
}

func TestParseMessageType(t *testing.T) {
	tests := []struct {
		in      string
		want    MessageType
		wantErr bool
	}{
		{"success", TypeSuccess, false},
		{"DANGER", TypeDanger, false},
		{"error", TypeDanger, false},
		{" info ", TypeInfo, false},
		{"", TypeSuccess, false},
		{"warning", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMessageType(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
