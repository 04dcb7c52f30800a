package internal

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"
	"github.com/jhalter/messenger-archive-viewer/internal/archive"
	"github.com/jhalter/messenger-archive-viewer/internal/loader"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeThreads = `[
	{"ThreadFBID": 1, "Name": "Book club", "Participants": []},
	{"ThreadFBID": 2, "OtherUserID": 20, "Participants": [{"FBID": 20, "Name": "Bob", "ImageSrc": "bob.png"}]},
	{"ThreadFBID": 3, "OtherUserID": 99, "Participants": [{"FBID": 20, "Name": "Bob"}]}
]`

// newLoadedThreadList returns a list whose initial load has completed, and
// the threads passed to the selection callback.
func newLoadedThreadList(t *testing.T, body string) (*ThreadList, *[]archive.Thread) {
	t.Helper()
	f := newFakeArchive()
	f.results[archive.ThreadsPath] = body

	list, cmd := NewThreadList(f, discardLogger(), nil)
	list.SetSize(30, 10)

	var selected []archive.Thread
	list.OnSelectThread = func(th archive.Thread) tea.Cmd {
		selected = append(selected, th)
		return nil
	}

	drain(t, list.Update, cmd)
	require.Equal(t, []string{archive.ThreadsPath}, f.Calls())
	return list, &selected
}

func currentRows(list *ThreadList) []bool {
	current := make([]bool, len(list.rows))
	for i, row := range list.rows {
		current[i] = row.current
	}
	return current
}

func TestThreadListAutoSelectsFirstThreadOnce(t *testing.T) {
	list, selected := newLoadedThreadList(t, threeThreads)

	assert.Equal(t, loader.Loaded, list.State())
	require.Len(t, list.rows, 3)
	require.Len(t, *selected, 1)
	assert.Equal(t, archive.ID("1"), (*selected)[0].ThreadFBID)
	assert.Equal(t, []bool{true, false, false}, currentRows(list))
}

func TestThreadListResolvesTitlesAndIcons(t *testing.T) {
	list, _ := newLoadedThreadList(t, threeThreads)

	assert.Equal(t, "Book club", list.rows[0].title)
	assert.Equal(t, archive.DefaultIcon, list.rows[0].icon)
	assert.Equal(t, "Bob", list.rows[1].title)
	assert.Equal(t, "bob.png", list.rows[1].icon)
	assert.Equal(t, archive.GroupChatTitle, list.rows[2].title)
}

func TestThreadListEmptyResultSelectsNothing(t *testing.T) {
	list, selected := newLoadedThreadList(t, `[]`)

	assert.Equal(t, loader.Loaded, list.State())
	assert.Empty(t, list.rows)
	assert.Empty(t, *selected)
	assert.Equal(t, -1, list.Current())
}

func TestThreadListSelectMovesCurrent(t *testing.T) {
	list, selected := newLoadedThreadList(t, threeThreads)

	list.Select(2)
	assert.Equal(t, []bool{false, false, true}, currentRows(list))
	require.Len(t, *selected, 2)
	assert.Equal(t, archive.ID("3"), (*selected)[1].ThreadFBID)

	list.Select(1)
	assert.Equal(t, []bool{false, true, false}, currentRows(list))
	assert.Equal(t, 1, list.Current())

	// Out of range selections are ignored.
	assert.Nil(t, list.Select(7))
	assert.Len(t, *selected, 3)
}

func TestThreadListKeyboardSelection(t *testing.T) {
	list, selected := newLoadedThreadList(t, threeThreads)

	list.HandleKey(keyPress("down"))
	list.HandleKey(keyPress("down"))
	list.HandleKey(keyPress("down"))
	assert.Equal(t, 2, list.cursor)
	// Moving the cursor alone does not select.
	assert.Len(t, *selected, 1)

	list.HandleKey(keyPress("enter"))
	assert.Equal(t, 2, list.Current())
	assert.Len(t, *selected, 2)

	list.HandleKey(keyPress("home"))
	assert.Equal(t, 0, list.cursor)
	assert.Equal(t, 2, list.Current())
}

func TestThreadListReloadReselectsFirst(t *testing.T) {
	list, selected := newLoadedThreadList(t, threeThreads)
	list.Select(2)

	drain(t, list.Update, list.HandleKey(keyPress("r")))

	assert.Equal(t, []bool{true, false, false}, currentRows(list))
	require.Len(t, *selected, 3)
	assert.Equal(t, archive.ID("1"), (*selected)[2].ThreadFBID)
}

func TestThreadListServerError(t *testing.T) {
	f := newFakeArchive()
	f.errs[archive.ThreadsPath] = &archive.ServerError{Message: "not authenticated"}

	list, cmd := NewThreadList(f, discardLogger(), nil)
	list.SetSize(30, 10)
	called := false
	list.OnSelectThread = func(archive.Thread) tea.Cmd {
		called = true
		return nil
	}
	drain(t, list.Update, cmd)

	assert.Equal(t, loader.Failed, list.State())
	assert.False(t, called)
	assert.Contains(t, ansi.Strip(list.View(true)), "not authenticated")
}

func TestThreadListViewKeepsCursorVisible(t *testing.T) {
	f := newFakeArchive()
	f.results[archive.ThreadsPath] = `[` +
		`{"ThreadFBID":"a","Name":"alpha"},{"ThreadFBID":"b","Name":"bravo"},{"ThreadFBID":"c","Name":"charlie"},` +
		`{"ThreadFBID":"d","Name":"delta"},{"ThreadFBID":"e","Name":"echo"},{"ThreadFBID":"f","Name":"foxtrot"}` +
		`]`
	list, cmd := NewThreadList(f, discardLogger(), nil)
	list.SetSize(30, 5)
	drain(t, list.Update, cmd)

	assert.Equal(t, 3, list.listHeight())
	list.HandleKey(keyPress("end"))
	view := ansi.Strip(list.View(true))
	assert.Contains(t, view, "foxtrot")
	assert.NotContains(t, view, "alpha")
}

func TestRenderThreadRowTruncatesTitle(t *testing.T) {
	row := threadRow{title: "An exceptionally long group conversation title", icon: archive.DefaultIcon}
	out := renderThreadRow(row, 20, false)

	assert.LessOrEqual(t, ansi.StringWidth(out), 20)
	assert.Contains(t, ansi.Strip(out), "…")
}
