// Package render turns a URL into the settled HTML of the page.
//
// Two implementations are provided. ChromeRenderer drives a headless
// Chrome instance over the DevTools protocol and performs incremental
// scrolling so that lazy-loaded product grids are present in the
// captured document. StaticRenderer is a plain HTTP fetcher for sites
// that serve complete markup without JavaScript; it is much cheaper and
// can be selected per domain.
//
// # Scroll acquisition
//
// Product listings commonly attach more items as the viewport nears the
// bottom of the page. After navigation the renderer measures the
// document height, scrolls to the bottom, waits a settle interval, and
// measures again. Scrolling repeats until the height stops growing or a
// configured cap is reached. The captured HTML therefore reflects the
// page as a patient human scroller would have seen it.
package render
