// Package template renders proxy, pool and index files from plain-text
// templates with {{NAME}} placeholders.
//
// Substitution is literal: every occurrence of a known placeholder is
// replaced with its value and everything else, including unknown
// placeholders, is left untouched. Templates are not parsed, so a broken
// nginx or PHP-FPM template is only caught by the proxy's own syntax check.
//
// # Placeholders
//
// Proxy config:
//   - {{HOSTNAME}}, {{DOCUMENT_ROOT}}, {{SOCKET}}, {{ACCESS_LOG}}, {{ERROR_LOG}}
//
// Pool config:
//   - {{HOSTNAME}}, {{SOCKET}}, {{WEB_USER}}, {{WEB_GROUP}}
//
// Index document:
//   - {{HOSTNAME}}, or a bare $hostname when the template has no {{HOSTNAME}}
//
// {{PHP_SOCKET}} is accepted everywhere {{SOCKET}} is.
//
// # Default Templates
//
// Defaults are embedded in the binary from defaults/*.tpl. Load returns the
// file at a configured path, or the embedded default when no path is set or
// the file does not exist:
//
//	tpl, err := template.Load(template.KindProxy, cfg.Templates.Proxy)
//	if err != nil {
//	    return err
//	}
//	text := template.RenderProxyConfig(site, logs, tpl)
package template
