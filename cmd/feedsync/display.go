// ABOUTME: Terminal formatting helpers shared by feed and article commands
// ABOUTME: Renders feed status lines and article rows with color

package main

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"

	"github.com/harper/feedsync/internal/config"
	"github.com/harper/feedsync/internal/models"
	"github.com/harper/feedsync/internal/timeutil"
)

var (
	faint = color.New(color.Faint).SprintFunc()
	bold  = color.New(color.Bold).SprintFunc()
	green = color.New(color.FgGreen).SprintFunc()
	red   = color.New(color.FgRed).SprintFunc()
	cyan  = color.New(color.FgCyan).SprintFunc()
)

// shortID truncates an ID for display, with a bounds check for short IDs.
func shortID(id string) string {
	if len(id) > config.DisplayIDLength {
		return id[:config.DisplayIDLength]
	}
	return id
}

// statusMark summarizes a feed's state in one symbol.
func statusMark(f *models.Feed) string {
	switch {
	case f.IsLoading():
		return faint("…")
	case f.IsInError():
		return red("x")
	case f.Status() == models.StatusReady:
		return green("v")
	default:
		return faint("-")
	}
}

func printFeed(w io.Writer, pos int, f *models.Feed, now time.Time) {
	fmt.Fprintf(w, "%s %s %s", faint(shortID(f.ID)), statusMark(f), bold(f.DisplayName()))
	if pos >= 0 {
		fmt.Fprintf(w, " %s", faint(fmt.Sprintf("#%d", pos)))
	}
	fmt.Fprintln(w)
	if !f.IsFavorites {
		fmt.Fprintf(w, "  URL: %s\n", f.Link())
	}
	fmt.Fprintf(w, "  %d article(s)", f.Len())
	if f.IsNotFavoritesOrInError() {
		fmt.Fprintf(w, ", last sync %s", timeutil.FormatLastSync(f.LastSyncTime(), now))
	}
	fmt.Fprintln(w)

	switch {
	case f.IsLoadingAndNotEmpty():
		fmt.Fprintf(w, "  %s\n", faint("refreshing, showing loaded articles"))
	case f.IsInErrorAndNotEmpty():
		// Articles from the last good refresh are kept.
		fmt.Fprintf(w, "  %s\n", red(f.FeedDownMessage()))
	case f.ErrorMessage() != "":
		fmt.Fprintf(w, "  %s\n", red(f.ErrorMessage()))
	}
}

func printArticle(w io.Writer, a *models.Article) {
	if a.Starred() {
		fmt.Fprint(w, "★ ")
	} else {
		fmt.Fprint(w, "  ")
	}
	title := a.Title
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprint(w, title)
	if a.PublishedAt != nil {
		fmt.Fprintf(w, " %s", faint(a.PublishedAt.Format(config.DateFormatShort)))
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  %s\n", cyan(a.Link))
}
