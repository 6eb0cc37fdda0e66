package htmlsafe

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	bodyRe      = regexp.MustCompile(`(?is)<body[^>]*>(.*?)</body>`)
	divOpenRe   = regexp.MustCompile(`(?i)<div\b([^>]*)>`)
	divCloseRe  = regexp.MustCompile(`(?i)</div>`)
	paraOpenRe  = regexp.MustCompile(`(?i)<p\b`)
	brRunRe     = regexp.MustCompile(`(?i)(?:<br\s*/?>\s*){2,}`)
	emptyParaRe = regexp.MustCompile(`(?i)<p\b[^>]*>\s*</p>`)
	paraRe      = regexp.MustCompile(`(?is)<p\b[^>]*>(.*?)</p>`)
	singleBrRe  = regexp.MustCompile(`(?i)<br\s*/?>`)
)

const fontStack = "Segoe UI, Arial, sans-serif"

// brRunSpacer replaces a run of consecutive line breaks: a one-row table
// whose only cell carries bottom padding of the requested height and a
// 1px nbsp so Outlook cannot collapse it.
func brRunSpacer(px int) string {
	return fmt.Sprintf(`<table role="presentation" border="0" cellspacing="0" cellpadding="0" width="100%%"><tr><td style="padding:0 0 %dpx 0;"><span style="font-size:1px; line-height:1px;">&nbsp;</span></td></tr></table>`, px)
}

// spacerBlock is the standalone spacer used for blank paragraphs and the
// plain-line fallback: a single fixed-height row with zeroed font metrics.
func spacerBlock(px int) string {
	return fmt.Sprintf(`<table role="presentation" border="0" cellspacing="0" cellpadding="0" width="100%%"><tr><td height="%d" style="font-size:0; line-height:0;">&nbsp;</td></tr></table>`, px)
}

// wrapParagraph renders a non-empty paragraph as a content row followed by
// a spacer row, keeping the 1.35 line-height contract.
func wrapParagraph(content string, px int) string {
	return fmt.Sprintf(`<table role="presentation" border="0" cellspacing="0" cellpadding="0" width="100%%">`+
		`<tr><td style="line-height:1.35; mso-line-height-rule:exactly; font-family: %s;">%s</td></tr>`+
		`<tr><td height="%d" style="font-size:0; line-height:0;">&nbsp;</td></tr></table>`,
		fontStack, content, px)
}

// Render transforms a rich-text HTML fragment (or full document) into an
// Outlook-safe document with explicit spacerPx pixels of vertical space
// between blocks. The transformation is deterministic and side-effect
// free; spacerPx is clamped to a minimum of 0.
func Render(fragment string, spacerPx int) string {
	if spacerPx < 0 {
		spacerPx = 0
	}

	// Extract the inner <body> when given a full document.
	inner := fragment
	if m := bodyRe.FindStringSubmatch(fragment); m != nil {
		inner = m[1]
	}

	// Normalize generic block containers into paragraphs.
	inner = divOpenRe.ReplaceAllString(inner, "<p$1>")
	inner = divCloseRe.ReplaceAllString(inner, "</p>")
	hadParagraphs := paraOpenRe.MatchString(inner)

	// Runs of two or more <br> collapse into a single spacer.
	inner = brRunRe.ReplaceAllString(inner, brRunSpacer(spacerPx))

	// Blank paragraphs become spacer blocks.
	inner = emptyParaRe.ReplaceAllString(inner, spacerBlock(spacerPx))

	// Remaining paragraphs become content row + spacer row tables.
	inner = paraRe.ReplaceAllStringFunc(inner, func(match string) string {
		content := paraRe.FindStringSubmatch(match)[1]
		return wrapParagraph(content, spacerPx)
	})

	// Plain-line fallback: input with no paragraphs and no spacers so far
	// still gets spacing after every single line break.
	if !hadParagraphs && !strings.Contains(inner, `role="presentation"`) {
		inner = singleBrRe.ReplaceAllString(inner, "<br/>"+spacerBlock(spacerPx))
	}

	return shellPrefix + inner + shellSuffix
}

// Shell with resets known to survive the Word rendering engine. Spacing
// is carried entirely by the spacer tables, the margin reset on <p> is
// kept as a belt for clients that honor it.
const shellPrefix = `<!DOCTYPE html>
<html xmlns:v="urn:schemas-microsoft-com:vml" xmlns:o="urn:schemas-microsoft-com:office:office" xmlns="http://www.w3.org/1999/xhtml">
<head>
  <meta http-equiv="x-ua-compatible" content="IE=edge">
  <meta name="format-detection" content="telephone=no, date=no, address=no, email=no">
  <meta name="x-apple-disable-message-reformatting">
  <!--[if mso]>
  <xml>
   <o:OfficeDocumentSettings>
    <o:AllowPNG/>
    <o:PixelsPerInch>96</o:PixelsPerInch>
   </o:OfficeDocumentSettings>
  </xml>
  <style type="text/css">
    body, table, td, div, p, a { font-family: Segoe UI, Arial, sans-serif !important; }
    p { margin:0 !important; }
  </style>
  <![endif]-->
  <style>
    body, table, td, div, p, a { font-family: Segoe UI, Arial, sans-serif; -webkit-text-size-adjust: 100%; -ms-text-size-adjust: 100%; }
    p { margin:0 !important; }
    .content { font-size: 11pt; line-height: 1.35; color:#2b2b2b; }
    img { border:0; outline:0; text-decoration:none; -ms-interpolation-mode:bicubic; }
  </style>
</head>
<body style="Margin:0; padding:0; background:#ffffff;">
  <table role="presentation" cellpadding="0" cellspacing="0" border="0" width="100%">
    <tr>
      <td align="left" style="padding:0;">
        <div class="content" style="font-family: Segoe UI, Arial, sans-serif; font-size:11pt; line-height:1.35; mso-line-height-rule:exactly;">
          `

const shellSuffix = `
        </div>
      </td>
    </tr>
  </table>
</body>
</html>`
