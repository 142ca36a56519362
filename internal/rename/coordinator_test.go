package rename

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"vaultnorm/internal/config"
	"vaultnorm/internal/errors"
	"vaultnorm/internal/vault"
	"vaultnorm/pkg/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var created = time.Date(2024, time.March, 5, 9, 30, 0, 0, time.UTC)

// testSettings returns defaults tuned for fast tests: events enabled, no
// grace period, a short debounce.
func testSettings(mutate func(*config.Settings)) *config.Settings {
	s := config.New()
	s.Enabled = true
	s.Watch.Debounce = time.Millisecond
	s.Watch.GracePeriod = 0
	if mutate != nil {
		mutate(s)
	}
	return s
}

func get(t *testing.T, store vault.Storage, p string) *types.Item {
	t.Helper()
	item, err := store.Get(p)
	require.NoError(t, err)
	return item
}

func TestStandardizeFile(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile("Notes/My First Note.md", created)
	c := New(mem, testSettings(nil))

	res := c.StandardizeFile(context.Background(), get(t, mem, "Notes/My First Note.md"))

	assert.True(t, res.Moved)
	assert.NoError(t, res.Error)
	assert.Equal(t, "Notes/my-first-note.md", res.DestinationPath)
	assert.Equal(t, []vault.MoveRecord{{From: "Notes/My First Note.md", To: "Notes/my-first-note.md"}}, mem.Moves())
}

func TestStandardizeFileIsIdempotent(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile("Café Società.md", created)
	c := New(mem, testSettings(nil))

	first := c.StandardizeFile(context.Background(), get(t, mem, "Café Società.md"))
	require.True(t, first.Moved)
	assert.Equal(t, "cafe-societa.md", first.DestinationPath)

	second := c.StandardizeFile(context.Background(), get(t, mem, "cafe-societa.md"))
	assert.False(t, second.Moved)
	assert.Equal(t, types.SkipAlreadyStandard, second.Skipped)
	assert.Len(t, mem.Moves(), 1)
}

func TestStandardizeFileLowercasesExtension(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile("Report.PDF", created)
	c := New(mem, testSettings(func(s *config.Settings) {
		s.TargetExtensions = nil
	}))

	res := c.StandardizeFile(context.Background(), get(t, mem, "Report.PDF"))
	assert.True(t, res.Moved)
	assert.Equal(t, "report.pdf", res.DestinationPath)
}

func TestStandardizeFileSkips(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile(".obsidian/Workspace Layout.md", created)
	mem.AddFile("Archive/Old Note.md", created)
	mem.AddFile("Archive2/Old Note.md", created)
	mem.AddFile("Pinned Note.md", created)
	mem.AddFile("Templates/Daily Note.md", created)
	mem.AddFile("Photo One.png", created)
	mem.AddFile("Both Lists.md", created)
	c := New(mem, testSettings(func(s *config.Settings) {
		s.BlacklistedFolders = []string{".obsidian", "Archive"}
		s.BlacklistedFiles = []string{"Pinned Note.md"}
		s.IgnorePatterns = []string{"Templates/**"}
	}))

	tests := []struct {
		path string
		want types.SkipReason
	}{
		{".obsidian/Workspace Layout.md", types.SkipBlacklistedFolder},
		{"Archive/Old Note.md", types.SkipBlacklistedFolder},
		{"Pinned Note.md", types.SkipBlacklistedFile},
		{"Templates/Daily Note.md", types.SkipIgnored},
		{"Photo One.png", types.SkipExtension},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			res := c.StandardizeFile(context.Background(), get(t, mem, tt.path))
			assert.Equal(t, tt.want, res.Skipped)
			assert.False(t, res.Attempted())
		})
	}

	res := c.StandardizeFile(context.Background(), get(t, mem, "Archive2/Old Note.md"))
	assert.True(t, res.Moved, "a sibling sharing the blacklisted prefix is still eligible")
	assert.Equal(t, "Archive2/old-note.md", res.DestinationPath)

	c.UpdateSettings(testSettings(func(s *config.Settings) {
		s.TargetExtensions = []string{"md"}
		s.ExcludedExtensions = []string{"MD"}
	}))
	res = c.StandardizeFile(context.Background(), get(t, mem, "Both Lists.md"))
	assert.Equal(t, types.SkipExtension, res.Skipped, "the exclusion list wins")
}

func TestStandardizeFileCollisions(t *testing.T) {
	t.Run("counter before extension", func(t *testing.T) {
		mem := vault.NewMemory()
		mem.AddFile("my-note.md", created)
		mem.AddFile("My Note.md", created)
		c := New(mem, testSettings(nil))

		res := c.StandardizeFile(context.Background(), get(t, mem, "My Note.md"))
		assert.Equal(t, "my-note-2.md", res.DestinationPath)
		assert.True(t, res.Moved)
	})

	t.Run("next counter", func(t *testing.T) {
		mem := vault.NewMemory()
		mem.AddFile("my-note.md", created)
		mem.AddFile("my-note-2.md", created)
		mem.AddFile("My Note.md", created)
		c := New(mem, testSettings(nil))

		res := c.StandardizeFile(context.Background(), get(t, mem, "My Note.md"))
		assert.Equal(t, "my-note-3.md", res.DestinationPath)
	})

	t.Run("lowest free counter", func(t *testing.T) {
		mem := vault.NewMemory()
		mem.AddFile("my-note.md", created)
		mem.AddFile("my-note-3.md", created)
		mem.AddFile("My Note.md", created)
		c := New(mem, testSettings(nil))

		res := c.StandardizeFile(context.Background(), get(t, mem, "My Note.md"))
		assert.Equal(t, "my-note-2.md", res.DestinationPath)
	})

	t.Run("folders get the counter at the end", func(t *testing.T) {
		mem := vault.NewMemory()
		mem.AddFolder("project.v2")
		mem.AddFolder("Project.V2")
		c := New(mem, testSettings(nil))

		res := c.StandardizeFolder(context.Background(), get(t, mem, "Project.V2"))
		assert.Equal(t, "project.v2-2", res.DestinationPath)
	})

	t.Run("in-flight destination counts as taken", func(t *testing.T) {
		mem := vault.NewMemory()
		mem.AddFile("My Note.md", created)
		mem.AddFile("my  note.md", created)

		release := make(chan struct{})
		mem.SetMoveHook(func(item *types.Item, _ string) error {
			if item.Path == "My Note.md" {
				<-release
			}
			return nil
		})
		c := New(mem, testSettings(nil))

		item := get(t, mem, "My Note.md")
		done := make(chan types.RenameResult)
		go func() {
			done <- c.StandardizeFile(context.Background(), item)
		}()
		require.Eventually(t, func() bool { return c.InFlight("my-note.md") }, time.Second, time.Millisecond)

		second := c.StandardizeFile(context.Background(), get(t, mem, "my  note.md"))
		assert.Equal(t, "my-note-2.md", second.DestinationPath)
		assert.True(t, second.Moved)

		close(release)
		first := <-done
		assert.Equal(t, "my-note.md", first.DestinationPath)
		assert.True(t, first.Moved)
	})
}

func TestStandardizeFileDuplicateSuffix(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile("Meeting 12.md", created)
	mem.AddFile("Untitled 2.md", created)

	c := New(mem, testSettings(nil))
	res := c.StandardizeFile(context.Background(), get(t, mem, "Meeting 12.md"))
	assert.Equal(t, "meeting.md", res.DestinationPath)

	c.UpdateSettings(testSettings(func(s *config.Settings) {
		s.StripDuplicateSuffix = false
	}))
	res = c.StandardizeFile(context.Background(), get(t, mem, "Untitled 2.md"))
	assert.Equal(t, "untitled-2.md", res.DestinationPath)
}

func TestStandardizeFileDotfile(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile(".hidden", created)
	c := New(mem, testSettings(func(s *config.Settings) {
		s.TargetExtensions = nil
	}))

	res := c.StandardizeFile(context.Background(), get(t, mem, ".hidden"))
	assert.Equal(t, types.SkipAlreadyStandard, res.Skipped)
	assert.Empty(t, mem.Moves())
}

func TestStandardizeFolder(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile("Project Ideas/Idea One.md", created)
	c := New(mem, testSettings(nil))

	res := c.StandardizeFolder(context.Background(), get(t, mem, "Project Ideas"))
	require.True(t, res.Moved)
	assert.Equal(t, "project-ideas", res.DestinationPath)
	assert.Equal(t, []string{"project-ideas", "project-ideas/Idea One.md"}, mem.Paths())

	res = c.StandardizeFolder(context.Background(), get(t, mem, ""))
	assert.Equal(t, types.SkipRoot, res.Skipped)
}

func TestStandardizeUsesDates(t *testing.T) {
	now := time.Date(2025, time.January, 2, 0, 0, 0, 0, time.UTC)
	mem := vault.NewMemory()
	c := New(mem, testSettings(func(s *config.Settings) {
		s.UseCreationDate = true
		s.DateFormat = "YYYY-MM-DD"
		s.Rules = append([]types.Rule{{Name: "Date prefix", Pattern: "^", Replace: "{{DATE}}-", Active: true}}, s.Rules...)
	}), WithClock(func() time.Time { return now }))

	assert.Equal(t, "2024-03-05-my-note.md", c.GenerateStandardName("My Note.md", created))
	assert.Equal(t, "2025-01-02-my-note.md", c.GenerateStandardName("My Note.md", time.Time{}), "zero creation time falls back to the clock")
	assert.Equal(t, "2025-01-02-projects", c.GenerateFolderName("Projects"))
}

func TestStandardizeDryRun(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile("My Note.md", created)
	c := New(mem, testSettings(nil), WithDryRun(true))

	res := c.StandardizeFile(context.Background(), get(t, mem, "My Note.md"))
	assert.Equal(t, types.SkipDryRun, res.Skipped)
	assert.Equal(t, "my-note.md", res.DestinationPath)
	assert.False(t, res.Moved)
	assert.Empty(t, mem.Moves())
	assert.Empty(t, c.InFlightPaths())
}

func TestStandardizeIsReentrancySafe(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile("My Note.md", created)

	release := make(chan struct{})
	mem.SetMoveHook(func(*types.Item, string) error {
		<-release
		return nil
	})
	c := New(mem, testSettings(nil))
	item := get(t, mem, "My Note.md")

	var wg sync.WaitGroup
	var first types.RenameResult
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = c.StandardizeFile(context.Background(), item)
	}()

	require.Eventually(t, func() bool { return c.InFlight("My Note.md") }, time.Second, time.Millisecond)
	second := c.StandardizeFile(context.Background(), item)
	assert.Equal(t, types.SkipInFlight, second.Skipped)

	close(release)
	wg.Wait()
	assert.True(t, first.Moved)
	assert.Len(t, mem.Moves(), 1)
}

func TestStandardizeFailureReleasesInFlight(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile("My Note.md", created)
	mem.SetMoveHook(func(item *types.Item, _ string) error {
		return errors.NewFileError("disk full", item.Path, errors.FileOperationFailed, nil)
	})

	var observed []types.RenameResult
	c := New(mem, testSettings(func(s *config.Settings) {
		s.Watch.GracePeriod = time.Minute
	}), WithObserver(func(r types.RenameResult) { observed = append(observed, r) }))

	res := c.StandardizeFile(context.Background(), get(t, mem, "My Note.md"))
	assert.False(t, res.Moved)
	assert.Error(t, res.Error)
	assert.Equal(t, errors.FileOperationFailed, errors.KindOf(res.Error))
	assert.False(t, c.InFlight("My Note.md"))
	assert.False(t, c.InFlight("my-note.md"))
	assert.Empty(t, mem.Moves())
	require.Len(t, observed, 1)
	assert.Equal(t, res.SourcePath, observed[0].SourcePath)

	// The failure is not retried, but a later request may try again.
	mem.SetMoveHook(nil)
	res = c.StandardizeFile(context.Background(), get(t, mem, "My Note.md"))
	assert.True(t, res.Moved)
}

func TestStandardizeGracePeriod(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile("My Note.md", created)
	c := New(mem, testSettings(func(s *config.Settings) {
		s.Watch.GracePeriod = 30 * time.Millisecond
	}))

	res := c.StandardizeFile(context.Background(), get(t, mem, "My Note.md"))
	require.True(t, res.Moved)
	assert.False(t, c.InFlight("My Note.md"), "the source is released at once")
	assert.True(t, c.InFlight("my-note.md"))
	assert.Eventually(t, func() bool { return !c.InFlight("my-note.md") }, time.Second, 5*time.Millisecond)
}

func TestStandardizeAll(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile("Docs/Read Me.md", created)
	mem.AddFile("Projects Two/Sub Folder/Note One.md", created)
	mem.AddFile("Top Level.md", created)
	mem.AddFile(".obsidian/Plugin Data.md", created)
	c := New(mem, testSettings(func(s *config.Settings) {
		s.Enabled = false
	}))

	_, err := c.StandardizeAll(context.Background())
	require.NoError(t, err)

	moves := mem.Moves()
	require.Len(t, moves, 6)
	assert.Equal(t, []vault.MoveRecord{
		{From: "Docs", To: "docs"},
		{From: "Projects Two/Sub Folder", To: "Projects Two/sub-folder"},
		{From: "Projects Two", To: "projects-two"},
	}, moves[:3], "folders are renamed children first")
	assert.Equal(t, []string{
		".obsidian",
		".obsidian/Plugin Data.md",
		"docs",
		"docs/read-me.md",
		"projects-two",
		"projects-two/sub-folder",
		"projects-two/sub-folder/note-one.md",
		"top-level.md",
	}, mem.Paths())

	results, err := c.StandardizeAll(context.Background())
	require.NoError(t, err)
	assert.Len(t, mem.Moves(), 6, "a second sweep issues no moves")
	for _, r := range results {
		assert.False(t, r.Attempted(), r.SourcePath)
	}
}

func TestStandardizeAllStopsOnCancel(t *testing.T) {
	mem := vault.NewMemory()
	mem.AddFile("A Note.md", created)
	c := New(mem, testSettings(nil))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.StandardizeAll(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, mem.Moves())
}

func TestHandleEvent(t *testing.T) {
	mem := vault.NewMemory()
	c := New(mem, testSettings(func(s *config.Settings) {
		s.Watch.GracePeriod = time.Minute
	}))
	defer c.Attach(mem)()

	mem.AddFile("New Note.md", created)
	c.Wait()

	assert.Equal(t, []vault.MoveRecord{{From: "New Note.md", To: "new-note.md"}}, mem.Moves())
	assert.Equal(t, []string{"new-note.md"}, mem.Paths())
}

func TestHandleEventMoveEchoDoesNotRetrigger(t *testing.T) {
	mem := vault.NewMemory()
	c := New(mem, testSettings(nil))
	defer c.Attach(mem)()

	// Without a grace period the echo arrives while the move is still
	// claimed, so it is dropped all the same.
	mem.AddFolder("New Folder")
	c.Wait()
	assert.Len(t, mem.Moves(), 1)
	assert.Equal(t, []string{"new-folder"}, mem.Paths())
}

func TestHandleEventDisabled(t *testing.T) {
	mem := vault.NewMemory()
	c := New(mem, testSettings(func(s *config.Settings) {
		s.Enabled = false
	}))
	defer c.Attach(mem)()

	mem.AddFile("First Note.md", created)
	c.Wait()
	assert.Empty(t, mem.Moves())

	c.UpdateSettings(testSettings(nil))
	assert.True(t, c.Settings().Enabled)

	mem.AddFile("Second Note.md", created)
	c.Wait()
	assert.Equal(t, []vault.MoveRecord{{From: "Second Note.md", To: "second-note.md"}}, mem.Moves())
}

func TestHandleEventItemGone(t *testing.T) {
	mem := vault.NewMemory()
	c := New(mem, testSettings(nil))

	c.HandleEvent(vault.Event{Op: vault.Created, Item: &types.Item{Path: "Vanished.md"}})
	c.Wait()
	assert.Empty(t, mem.Moves())
}

func TestClose(t *testing.T) {
	mem := vault.NewMemory()
	c := New(mem, testSettings(nil))
	defer c.Attach(mem)()

	c.Close()
	mem.AddFile("After Close.md", created)
	c.Wait()
	assert.Empty(t, mem.Moves())
}

func TestCloseWhileEventsArrive(t *testing.T) {
	mem := vault.NewMemory()
	var items []*types.Item
	for i := 0; i < 50; i++ {
		items = append(items, mem.AddFile(fmt.Sprintf("Note %02d.md", i), created))
	}
	c := New(mem, testSettings(nil))

	var wg sync.WaitGroup
	for _, item := range items {
		wg.Add(1)
		go func(item *types.Item) {
			defer wg.Done()
			c.HandleEvent(vault.Event{Op: vault.Created, Item: item})
		}(item)
	}
	c.Close()
	moved := len(mem.Moves())

	wg.Wait()
	time.Sleep(20 * time.Millisecond)
	assert.Len(t, mem.Moves(), moved, "no rename may start after Close returns")
}

func TestSettingsReturnsCopy(t *testing.T) {
	c := New(vault.NewMemory(), testSettings(nil))
	s := c.Settings()
	s.TargetExtensions[0] = "changed"
	assert.Equal(t, []string{"md"}, c.Settings().TargetExtensions)
}
