/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"testing"

	"photolayout/internal/domain"
	"photolayout/internal/imagesrc"
	"photolayout/internal/printing"
	"photolayout/internal/storage"
)

func pngURI(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatal(err)
	}
	return imagesrc.DataURI("image/png", buf.Bytes())
}

// gridEditor is an editor over one A4 page filled with 90x60 cards and an
// image in card-1-0.
func gridEditor(t *testing.T, opts Options) *Editor {
	t.Helper()
	e := New(nil, opts)
	t.Cleanup(func() { _ = e.Close() })
	for _, a := range []Action{
		{Kind: SetPageSize, Page: 1, Size: "210x297"},
		{Kind: FillGrid, Page: 1, W: 90, H: 60},
		{Kind: SetImage, Page: 1, CardID: "card-1-0", Src: pngURI(t, 40, 30)},
	} {
		if err := e.Dispatch(a); err != nil {
			t.Fatalf("dispatch %s: %v", a.Kind, err)
		}
	}
	return e
}

func image0(t *testing.T, e *Editor) *domain.CardImage {
	t.Helper()
	_, c, err := e.Session().FindCard(1, "card-1-0")
	if err != nil {
		t.Fatal(err)
	}
	return c.Image
}

func TestDispatchUndoRedo(t *testing.T) {
	e := gridEditor(t, Options{})
	if n := len(e.Session().Pages[0].Cards); n != 8 {
		t.Fatalf("expected 8 cards, got %d", n)
	}
	if img := image0(t, e); img.OriginalWidth != 40 || img.OriginalHeight != 30 {
		t.Fatalf("natural size not probed: %+v", img)
	}
	if err := e.Dispatch(Action{Kind: Undo}); err != nil {
		t.Fatal(err)
	}
	if image0(t, e) != nil {
		t.Fatalf("undo should remove the image")
	}
	if err := e.Dispatch(Action{Kind: Undo}); err != nil {
		t.Fatal(err)
	}
	if n := len(e.Session().Pages[0].Cards); n != 0 {
		t.Fatalf("undo fill grid left %d cards", n)
	}
	if err := e.Dispatch(Action{Kind: Redo}); err != nil {
		t.Fatal(err)
	}
	if n := len(e.Session().Pages[0].Cards); n != 8 {
		t.Fatalf("redo should restore 8 cards, got %d", n)
	}
}

func TestDispatchRejectedEditNotRecorded(t *testing.T) {
	e := gridEditor(t, Options{})
	before := e.Stack().Len()
	err := e.Dispatch(Action{Kind: SetPageSize, Page: 1, Size: "300x400"})
	if !domain.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if e.Stack().Len() != before {
		t.Fatalf("failed edit was recorded")
	}
	if err := e.Dispatch(Action{Kind: "card.explode"}); err == nil {
		t.Fatalf("expected unknown action error")
	}
}

func TestImageGestures(t *testing.T) {
	e := gridEditor(t, Options{})
	steps := []Action{
		{Kind: RotateImage, Page: 1, CardID: "card-1-0", Delta: 270},
		{Kind: RotateImage, Page: 1, CardID: "card-1-0", Delta: 180},
		{Kind: ZoomImage, Page: 1, CardID: "card-1-0", Delta: 25},
		{Kind: PanImage, Page: 1, CardID: "card-1-0", DX: 4, DY: -2},
	}
	for _, a := range steps {
		if err := e.Dispatch(a); err != nil {
			t.Fatalf("%s: %v", a.Kind, err)
		}
	}
	got := image0(t, e).Settings
	want := domain.ImageSettings{Rotation: 90, Zoom: 125, TranslateX: 4, TranslateY: -2}
	if got != want {
		t.Fatalf("settings = %+v, want %+v", got, want)
	}
	if err := e.Dispatch(Action{Kind: ResetImage, Page: 1, CardID: "card-1-0"}); err != nil {
		t.Fatal(err)
	}
	if image0(t, e).Settings != domain.DefaultImageSettings() {
		t.Fatalf("reset failed: %+v", image0(t, e).Settings)
	}
}

func TestDragCoalescesIntoOneEdit(t *testing.T) {
	e := gridEditor(t, Options{})
	depth := e.Stack().Len()
	edits := len(image0(t, e).EditHistory)

	if err := e.BeginDrag(1, "card-1-0"); err != nil {
		t.Fatal(err)
	}
	for _, d := range [][2]float64{{5, 0}, {10, 1}, {12, 3}} {
		if err := e.DragBy(d[0], d[1]); err != nil {
			t.Fatal(err)
		}
	}
	if err := e.Dispatch(Action{Kind: Undo}); !errors.Is(err, ErrDragActive) {
		t.Fatalf("dispatch during drag: %v", err)
	}
	if got := image0(t, e).Settings; got.TranslateX != 12 || got.TranslateY != 3 {
		t.Fatalf("live settings not applied: %+v", got)
	}
	if err := e.EndDrag(); err != nil {
		t.Fatal(err)
	}
	if e.Stack().Len() != depth+1 {
		t.Fatalf("drag should add exactly one command, stack %d -> %d", depth, e.Stack().Len())
	}
	if n := len(image0(t, e).EditHistory); n != edits+1 {
		t.Fatalf("drag should add one image edit entry, got %d -> %d", edits, n)
	}
	if err := e.Dispatch(Action{Kind: Undo}); err != nil {
		t.Fatal(err)
	}
	if got := image0(t, e).Settings; got.TranslateX != 0 || got.TranslateY != 0 {
		t.Fatalf("undo should restore pre-drag framing: %+v", got)
	}
}

func TestDragWithoutMovementRecordsNothing(t *testing.T) {
	e := gridEditor(t, Options{})
	depth := e.Stack().Len()
	if err := e.BeginDrag(1, "card-1-0"); err != nil {
		t.Fatal(err)
	}
	if err := e.EndDrag(); err != nil {
		t.Fatal(err)
	}
	if e.Stack().Len() != depth {
		t.Fatalf("empty drag was recorded")
	}
	if err := e.BeginDrag(1, "card-1-1"); err == nil {
		t.Fatalf("drag on an empty card should fail")
	}
}

func TestCancelDragRestores(t *testing.T) {
	e := gridEditor(t, Options{})
	if err := e.BeginDrag(1, "card-1-0"); err != nil {
		t.Fatal(err)
	}
	if err := e.DragTo(domain.ImageSettings{Rotation: 45, Zoom: 150}); err != nil {
		t.Fatal(err)
	}
	if err := e.CancelDrag(); err != nil {
		t.Fatal(err)
	}
	if image0(t, e).Settings != domain.DefaultImageSettings() || e.Dragging() {
		t.Fatalf("cancel did not restore: %+v", image0(t, e).Settings)
	}
}

func TestOpenPreviewKeepsCurrentPage(t *testing.T) {
	e := gridEditor(t, Options{})
	if err := e.Dispatch(Action{Kind: AddPage, Size: "210x297"}); err != nil {
		t.Fatal(err)
	}
	if err := e.Dispatch(Action{Kind: SelectPage, Page: 1}); err != nil {
		t.Fatal(err)
	}
	if err := e.OpenPreview(context.Background()); err != nil {
		t.Fatal(err)
	}
	if e.Session().CurrentPage != 0 {
		t.Fatalf("current page moved to %d", e.Session().CurrentPage)
	}
	if got := e.Preview().PageIndicator(); got != "Page 1 of 2" {
		t.Fatalf("indicator = %q", got)
	}
}

func openIndex(t *testing.T) *storage.Index {
	t.Helper()
	ix, err := storage.OpenIndex(t.TempDir())
	if err != nil {
		t.Fatalf("OpenIndex: %v", err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	return ix
}

func TestPrintToTestPrinterIsLogged(t *testing.T) {
	ix := openIndex(t)
	e := gridEditor(t, Options{Index: ix})
	var seen []printing.Job
	e.OnOutcome(func(j printing.Job) { seen = append(seen, j) })

	ctx := context.Background()
	if err := e.OpenPrint(ctx); err != nil {
		t.Fatalf("OpenPrint: %v", err)
	}
	bad := printing.DefaultSettings()
	bad.Printer = printing.TestPrinterName
	bad.Copies = "0"
	if _, err := e.Print(ctx, bad); !domain.IsValidation(err) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if e.Dialog().State() != printing.StateDialogOpen {
		t.Fatalf("rejected job should leave the dialog open, state %s", e.Dialog().State())
	}

	good := bad
	good.Copies = "2"
	job, err := e.Print(ctx, good)
	if err != nil {
		t.Fatalf("Print: %v", err)
	}
	if job.State != printing.StateSucceeded || job.Pages != 1 {
		t.Fatalf("unexpected job %+v", job)
	}
	if e.Dialog().State() != printing.StateClosed {
		t.Fatalf("dialog should close after success, state %s", e.Dialog().State())
	}
	jobs, err := ix.ListPrintJobs(ctx, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(jobs) != 2 || jobs[0].State != printing.StateSucceeded || jobs[1].State != printing.StateRejected {
		t.Fatalf("print log = %+v", jobs)
	}
	if len(seen) != 2 {
		t.Fatalf("outcome hook saw %d jobs", len(seen))
	}
}

func TestPrintedPages(t *testing.T) {
	s := printing.DefaultSettings()
	s.Printer = printing.TestPrinterName
	if got := printedPages(s, 5); got != 5 {
		t.Fatalf("all pages: %d", got)
	}
	s.Pages = "custom"
	s.PageRanges = "1-2, 4, 9"
	if got := printedPages(s, 5); got != 3 {
		t.Fatalf("custom pages: %d", got)
	}
}

func TestThumbnailIsCached(t *testing.T) {
	ix := openIndex(t)
	e := gridEditor(t, Options{Index: ix})
	ctx := context.Background()
	first, err := e.Thumbnail(ctx, 1, 10)
	if err != nil {
		t.Fatalf("Thumbnail: %v", err)
	}
	if e.Session().Pages[0].Preview == nil {
		t.Fatalf("page preview not stored")
	}
	total, err := ix.TotalPreviewBytes(ctx)
	if err != nil || total != int64(len(first)) {
		t.Fatalf("cache holds %d bytes (%v), want %d", total, err, len(first))
	}
	second, err := e.Thumbnail(ctx, 1, 10)
	if err != nil || !bytes.Equal(first, second) {
		t.Fatalf("second thumbnail differs: %v", err)
	}
	if _, err := e.Thumbnail(ctx, 9, 10); err == nil {
		t.Fatalf("expected error for missing page")
	}
}

func TestSaveSyncsHistory(t *testing.T) {
	root := t.TempDir()
	ws, err := storage.Init(root, domain.NewSession())
	if err != nil {
		t.Fatal(err)
	}
	ix, err := storage.OpenIndex(root)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = ix.Close() })
	e := New(nil, Options{Workspace: ws, Index: ix})
	t.Cleanup(func() { _ = e.Close() })
	if err := e.Dispatch(Action{Kind: SetPageSize, Page: 1, Size: "210x297"}); err != nil {
		t.Fatal(err)
	}
	ctx := context.Background()
	if err := e.Save(ctx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	snaps, err := ix.ListSnapshots(ctx, 10)
	if err != nil || len(snaps) == 0 {
		t.Fatalf("no snapshots synced: %v", err)
	}
	reopened, err := storage.Open(root)
	if err != nil {
		t.Fatal(err)
	}
	if reopened.Session.Pages[0].PageSize != "210x297" {
		t.Fatalf("saved layout lost the page size")
	}
}

func TestResetStartsOver(t *testing.T) {
	ix := openIndex(t)
	e := gridEditor(t, Options{Index: ix})
	ctx := context.Background()
	if err := e.Dispatch(Action{Kind: AddPage}); err != nil {
		t.Fatal(err)
	}
	if _, err := e.Thumbnail(ctx, 1, 10); err != nil {
		t.Fatal(err)
	}
	if err := e.Reset(ctx); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	s := e.Session()
	if len(s.Pages) != 1 || len(s.Pages[0].Cards) != 0 || s.CurrentPage != 0 || s.Pages[0].PageNumber != 1 {
		t.Fatalf("session after reset: %d pages, current %d", len(s.Pages), s.CurrentPage)
	}
	if e.Stack().Len() != 0 || e.Stack().CanUndo() || e.Stack().CanRedo() {
		t.Fatalf("undo stack not cleared: %v", e.Stack().Names())
	}
	if len(s.History) != 1 || s.History[0].Action != "Reset Project" {
		t.Fatalf("history after reset: %+v", s.History)
	}
	if total, err := ix.TotalPreviewBytes(ctx); err != nil || total != 0 {
		t.Fatalf("preview cache holds %d bytes (%v)", total, err)
	}
	if err := e.Dispatch(Action{Kind: FillGrid, Page: 1, W: 90, H: 60}); err != nil {
		t.Fatalf("edit after reset: %v", err)
	}
	if e.Stack().Len() != 1 {
		t.Fatalf("stack after edit: %v", e.Stack().Names())
	}
}
