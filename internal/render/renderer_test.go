package render

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeSession simulates a page whose height grows a fixed number of
// times before settling, mirroring a lazy-loaded product grid.
type fakeSession struct {
	// growths is how many scrolls produce new content.
	growths int

	// height is the current simulated document height.
	height int64

	// scrolls counts scrollToBottom calls.
	scrolls int

	// heightErr, when set, is returned by pageHeight.
	heightErr error

	// status is the navigation status reported; 200 when unset.
	status int

	// navErr, when set, is returned by navigate.
	navErr error
}

func (f *fakeSession) navigate(ctx context.Context, url string) (int, error) {
	if f.navErr != nil {
		return 0, f.navErr
	}
	if f.status == 0 {
		return 200, nil
	}
	return f.status, nil
}

func (f *fakeSession) scrollToBottom(ctx context.Context) error {
	f.scrolls++
	if f.growths > 0 {
		f.growths--
		f.height += 1000
	}
	return nil
}

func (f *fakeSession) pageHeight(ctx context.Context) (int64, error) {
	if f.heightErr != nil {
		return 0, f.heightErr
	}
	return f.height, nil
}

func (f *fakeSession) html(ctx context.Context) (string, error) {
	return "<html></html>", nil
}

// TestRenderPage tests the navigate-scroll-capture sequence.
func TestRenderPage(t *testing.T) {
	t.Parallel()

	t.Run("captures settled html with the status", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{growths: 1, height: 3000}
		snap, err := renderPage(context.Background(), sess, "https://www.example.com/", 10, time.Millisecond)
		if err != nil {
			t.Fatalf("renderPage failed: %v", err)
		}

		if !snap.OK() {
			t.Errorf("outcome = %q, want ok", snap.Outcome)
		}
		if snap.StatusCode != 200 {
			t.Errorf("StatusCode = %d, want 200", snap.StatusCode)
		}
		if snap.HTML == "" {
			t.Error("snapshot should hold the captured HTML")
		}
		if snap.Scrolls != 2 {
			t.Errorf("Scrolls = %d, want 2", snap.Scrolls)
		}
	})

	t.Run("error status fails the page", func(t *testing.T) {
		t.Parallel()

		// A 404 page loads like any other; the status alone decides.
		sess := &fakeSession{status: 404, height: 3000}
		snap, err := renderPage(context.Background(), sess, "https://www.example.com/gone", 10, time.Millisecond)
		if !errors.Is(err, ErrRenderFailed) {
			t.Fatalf("error = %v, want ErrRenderFailed", err)
		}

		if snap.OK() {
			t.Error("error page must not produce a usable snapshot")
		}
		if snap.StatusCode != 404 {
			t.Errorf("StatusCode = %d, want 404", snap.StatusCode)
		}
		if snap.HTML != "" {
			t.Error("error page content must not be captured")
		}
		if sess.scrolls != 0 {
			t.Errorf("error page was scrolled %d times, want 0", sess.scrolls)
		}
	})

	t.Run("navigation error fails the page", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{navErr: errors.New("dns failure")}
		snap, err := renderPage(context.Background(), sess, "https://www.example.com/", 10, time.Millisecond)
		if !errors.Is(err, ErrRenderFailed) {
			t.Fatalf("error = %v, want ErrRenderFailed", err)
		}
		if snap.OK() {
			t.Error("failed navigation must not produce a usable snapshot")
		}
	})
}

// TestScrollAcquire tests the incremental scroll loop.
func TestScrollAcquire(t *testing.T) {
	t.Parallel()

	t.Run("stops after height settles", func(t *testing.T) {
		t.Parallel()

		// Content grows twice, so the loop needs three scrolls: two that
		// grow the page and one that confirms the height settled.
		sess := &fakeSession{growths: 2, height: 3000}
		scrolls, err := scrollAcquire(context.Background(), sess, 10, time.Millisecond)
		if err != nil {
			t.Fatalf("scrollAcquire failed: %v", err)
		}
		if scrolls != 3 {
			t.Errorf("scrolls = %d, want 3", scrolls)
		}
	})

	t.Run("static page needs one scroll", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{growths: 0, height: 3000}
		scrolls, err := scrollAcquire(context.Background(), sess, 10, time.Millisecond)
		if err != nil {
			t.Fatalf("scrollAcquire failed: %v", err)
		}
		if scrolls != 1 {
			t.Errorf("scrolls = %d, want 1", scrolls)
		}
	})

	t.Run("cap bounds infinite feeds", func(t *testing.T) {
		t.Parallel()

		// Height grows on every scroll; only the cap stops the loop.
		sess := &fakeSession{growths: 1000, height: 3000}
		scrolls, err := scrollAcquire(context.Background(), sess, 5, time.Millisecond)
		if err != nil {
			t.Fatalf("scrollAcquire failed: %v", err)
		}
		if scrolls != 5 {
			t.Errorf("scrolls = %d, want 5", scrolls)
		}
	})

	t.Run("zero cap disables scrolling", func(t *testing.T) {
		t.Parallel()

		sess := &fakeSession{growths: 3, height: 3000}
		scrolls, err := scrollAcquire(context.Background(), sess, 0, time.Millisecond)
		if err != nil {
			t.Fatalf("scrollAcquire failed: %v", err)
		}
		if scrolls != 0 {
			t.Errorf("scrolls = %d, want 0", scrolls)
		}
		if sess.scrolls != 0 {
			t.Errorf("session scrolled %d times, want 0", sess.scrolls)
		}
	})

	t.Run("height error propagates", func(t *testing.T) {
		t.Parallel()

		wantErr := errors.New("tab crashed")
		sess := &fakeSession{heightErr: wantErr}
		if _, err := scrollAcquire(context.Background(), sess, 5, time.Millisecond); !errors.Is(err, wantErr) {
			t.Errorf("expected tab error, got %v", err)
		}
	})

	t.Run("respects context cancellation during wait", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		sess := &fakeSession{growths: 3, height: 3000}
		if _, err := scrollAcquire(ctx, sess, 5, time.Hour); !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}
