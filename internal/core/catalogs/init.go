// Package catalogs registers the built-in field catalogs with the core
// registry and loads additional catalogs from YAML files.
//
// Import it for side effects to get the built-in catalogs:
//
//	import _ "github.com/JonMunkholm/sheetmap/internal/core/catalogs"
package catalogs
