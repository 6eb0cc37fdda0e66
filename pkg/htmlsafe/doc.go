// Package htmlsafe rewrites rich-text editor HTML into a form that renders
// predictably in Outlook and other Word-engine email clients.
//
// Those engines ignore paragraph margins and most modern CSS, so the
// rewrite replaces paragraph spacing with explicit table-based spacer rows
// of a fixed pixel height and wraps the result in a self-contained shell
// with conservative resets (fixed font stack, 11pt base size, 1.35
// line-height, zeroed paragraph margins).
//
// Render assumes untransformed editor output; feeding its own output back
// in is not supported. Untrusted fragments should go through Sanitize
// first.
package htmlsafe
