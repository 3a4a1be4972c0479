// Package access decides whether a principal may reach a screen of the back office.
//
// The pieces, leaf first:
//
//   - Satisfies evaluates a PermissionSet against a (module, action, resource)
//     requirement with wildcard precedence.
//   - Registry maps literal and single-parameter path patterns to requirements.
//   - Service combines both into CanAccessPath and picks a landing path with
//     ResolveDefault.
//   - Guard sequences status, predicate, role, permission and path checks into one
//     Decision and presents denials as a Redirect or an inline Denial.
//   - FilterMenu trims a menu to the entries a principal can reach.
//
// Nothing in this package performs I/O or logging.
package access
