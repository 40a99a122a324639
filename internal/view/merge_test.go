package view_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/averonhq/deskchat/internal/view"
	"github.com/averonhq/deskchat/internal/wire"
)

func TestMergeEchoReplacesMatchingDraft(t *testing.T) {
	at := time.Now()
	draft := msg(wire.LocalDraftPrefix+"d1", self, "hello", at)
	draft.Status = wire.StatusSending
	messages := []*wire.Message{draft}

	echo := msg("500", self, "hello", at.Add(2*time.Second))
	merged := view.MergeEcho(messages, echo)

	require.Len(t, merged, 1, "draft and echo must collapse into one bubble")
	require.Equal(t, "500", merged[0].ID)
	require.Equal(t, wire.StatusDelivered, merged[0].Status)
}

func TestMergeEchoAppendsUnrelatedMessage(t *testing.T) {
	at := time.Now()
	messages := []*wire.Message{msg("1", "E2", "hi", at)}

	merged := view.MergeEcho(messages, msg("2", "E2", "there", at.Add(time.Second)))
	require.Len(t, merged, 2)
	require.Equal(t, "there", merged[1].Body)
}

func TestMergeEchoIgnoresDuplicateID(t *testing.T) {
	at := time.Now()
	messages := []*wire.Message{msg("7", "E2", "hi", at)}

	merged := view.MergeEcho(messages, msg("7", "E2", "hi", at))
	require.Len(t, merged, 1)
}

func TestMergeEchoRespectsProximityWindow(t *testing.T) {
	at := time.Now()
	draft := msg(wire.LocalDraftPrefix+"d1", self, "hello", at)
	messages := []*wire.Message{draft}

	// Same content but far outside the window: treated as a distinct message.
	stale := msg("900", self, "hello", at.Add(10*time.Minute))
	merged := view.MergeEcho(messages, stale)
	require.Len(t, merged, 2)
}

func TestMergeEchoDoesNotMatchOtherSendersDrafts(t *testing.T) {
	at := time.Now()
	draft := msg(wire.LocalDraftPrefix+"d1", self, "hello", at)
	messages := []*wire.Message{draft}

	other := msg("42", "E2", "hello", at)
	merged := view.MergeEcho(messages, other)
	require.Len(t, merged, 2)
}

func TestRenderBodyStripsMarkup(t *testing.T) {
	require.Equal(t, "hello there", view.RenderBody("<b>hello</b> there"))
	require.Equal(t, "a & b", view.RenderBody("a &amp; b"))
	require.Equal(t, "plain", view.RenderBody("  plain  "))
}
