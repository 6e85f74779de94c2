package features

import "strings"

// Marker tables are matched against lowercased markup.
var (
	reactMarkers = []string{
		"__next_data__", "_reactroot", "data-reactroot", "__webpack_require__",
		"react-dom", "react.production", "/react.js", "\"react.js", "'react.js",
	}
	vueMarkers = []string{
		"v-app", "createapp(", "data-vue-app", "__vue__", "vue.global", "/vue.js",
	}
	angularMarkers = []string{
		"ng-app", "ng-version", "platformbrowserdynamic", "[ngclass]",
	}
	antiScrapingMarkers = []string{
		"cloudflare", "cf-browser-verification", "challenge-platform",
		"grecaptcha", "hcaptcha", "perimeterx", "datadome", "_incapsula_",
	}
	mainContentMarkers = []string{
		"<article", "class=\"content\"", "id=\"content\"", "<main",
	}
	openGraphMarkers = []string{
		"property=\"og:", "property='og:",
	}
	headingTags = []string{"h1", "h2", "h3", "h4", "h5", "h6"}

	hydrationMarkers = []string{
		"__next_data__", "__nuxt__", "window.__initial_state__", "window.__apollo_state__",
	}
	reactAttrMarkers = []string{
		"data-reactroot", "data-react-helmet", "data-reactid",
	}
	bundlerMarkers = []string{
		"__webpack", "webpackjsonp", "<!-- rendered by",
	}
	mountPoints = []string{
		"id=\"root\"", "id=\"app\"", "id=\"__next\"", "id=\"__nuxt\"",
		"id='root'", "id='app'",
	}

	placeholderClasses = []string{
		"skeleton", "shimmer", "loading-skeleton", "skeleton-loader", "skeleton-box",
		"skeleton-text", "skeleton-line", "skeleton-avatar", "skeleton-card",
		"shimmer-effect", "shimmer-wrapper", "placeholder-glow", "placeholder-wave",
		"loading-placeholder", "content-loader", "bone-loader", "pulse-loader",
		"animated-background",
	}
	loaderClasses = []string{
		"class=\"loading\"", "class=\"spinner\"", "class=\"loader\"",
	}
	jsonLDArticleTypes = []string{
		"\"article\"", "\"newsarticle\"", "\"blogposting\"", "\"techarticle\"",
	}
)

// countSPAMarkers counts independent SPA signals, saturating at MaxSPAMarkers.
func countSPAMarkers(lower string, scriptBytes int) uint8 {
	n := 0
	if containsAny(lower, hydrationMarkers) {
		n++
	}
	if containsAny(lower, reactAttrMarkers) {
		n++
	}
	if containsAny(lower, bundlerMarkers) {
		n++
	}
	if hasEmptyMountPoint(lower) {
		n++
	}
	if scriptBytes > len(lower)/2 {
		n++
	}
	if n > MaxSPAMarkers {
		n = MaxSPAMarkers
	}
	return uint8(n)
}

// hasEmptyMountPoint reports a framework mount element that is either empty
// in the served markup or surrounded by a div-heavy shell.
func hasEmptyMountPoint(lower string) bool {
	for _, m := range mountPoints {
		i := strings.Index(lower, m)
		if i < 0 {
			continue
		}
		if countTag(lower, "div") > 20 {
			return true
		}
		rest := lower[i+len(m):]
		gt := strings.IndexByte(rest, '>')
		if gt < 0 {
			return true
		}
		if strings.HasPrefix(strings.TrimLeft(rest[gt+1:], " \t\r\n"), "</") {
			return true
		}
	}
	return false
}

func hasPlaceholderUI(lower string) bool {
	if containsAny(lower, placeholderClasses) {
		return true
	}
	if strings.Contains(lower, "aria-busy=\"true\"") {
		return true
	}
	if strings.Contains(lower, "role=\"status\"") &&
		(strings.Contains(lower, "loading") || strings.Contains(lower, "spinner")) {
		return true
	}
	return countTag(lower, "div") > 10 && countAny(lower, loaderClasses) > 3
}

// hasJSONLDArticle looks for "@type" followed by an article-like type,
// tolerating whitespace around the colon.
func hasJSONLDArticle(lower string) bool {
	const key = "\"@type\""
	s := lower
	for {
		i := strings.Index(s, key)
		if i < 0 {
			return false
		}
		s = s[i+len(key):]
		rest := strings.TrimLeft(s, " \t\r\n")
		if !strings.HasPrefix(rest, ":") {
			continue
		}
		rest = strings.TrimLeft(rest[1:], " \t\r\n[")
		for _, t := range jsonLDArticleTypes {
			if strings.HasPrefix(rest, t) {
				return true
			}
		}
	}
}
