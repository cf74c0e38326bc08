// Package browser drives a Chrome or Chromium instance through go-rod.
//
// It launches the browser with a throwaway profile, exposes the outgoing
// request stream with URL fragments re-attached, and reads cookies and page
// state for session capture. The browser window is visible unless headless
// mode is requested, since the user has to log in by hand.
package browser
