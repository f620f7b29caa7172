// Package internal contains the implementation packages of the isle CLI.
//
// # Package Organization
//
//   - config: viper-backed site configuration and validation
//   - errors: typed site errors, fatal/recoverable classification
//   - logging: structured logging over log/slog
//   - metrics: Prometheus recorder for builds, reloads and restarts
//   - styles: style module compilation and the class-name mapping cache
//   - registry: the explicit island registry
//   - deps: package manifest, island import scan, import maps
//   - hydrate: generated hydration entry points
//   - bundler: esbuild island bundles for the static and dev targets
//   - content: documents, page templates, island detection and injection
//   - build: the static build and its feed
//   - livereload: the reload push channel
//   - server: the dev server
//   - watcher: change sources and debouncing
//   - supervisor: the dev loop that restarts and reloads the server
//   - validation: URL and base path checks
//   - version: build information
package internal
