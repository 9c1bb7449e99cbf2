// Package component defines lifecycle-managed application parts and a
// registry that starts them in order and stops them in reverse.
//
// # Interfaces
//
//   - Component: Start, Stop and Health
//   - Describable: startup description
//   - RouteProvider: HTTP routes served by the component
package component
