// Package config loads sitectl's configuration.
//
// Settings are resolved in three layers: built-in defaults (partly
// detected from the platform), the YAML file at
// ~/.config/sitectl/config.yaml (or --config), then SITECTL_* environment
// variables. The result is validated before use.
//
// Example config.yaml:
//
//	data_dir: /var/lib/sitectl
//	simulate: false
//	web_user: www-data
//	web_group: www-data
//	paths:
//	  webroot: /var/www
//	  proxy_available: /etc/nginx/sites-available
//	  proxy_enabled: /etc/nginx/sites-enabled
//	  pool_base: /etc/php
//	  socket_base: /run/php
//	binaries:
//	  proxy: nginx
//	  service_template: php{version}-fpm
//	registry:
//	  driver: sqlite
//	command_timeout: 30s
//
// Paths left empty are derived from data_dir: webroot (data_dir/var/www),
// log_base (data_dir/logs), the registry file and lock_dir.
//
// Simulation is on by default, so a fresh install never touches nginx or
// PHP-FPM until the operator turns it off.
package config
