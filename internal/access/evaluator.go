package access

// Satisfies reports whether set grants action on resource within module.
//
// Any one of the following is sufficient:
//   - an exact (module, action, resource) grant
//   - (module, all, *)
//   - (module, action, *)
//   - (system, all, *)
//
// Tokens compare by equality only. An empty set satisfies nothing.
func Satisfies(set PermissionSet, module string, action Action, resource Resource) bool {
	if set.Len() == 0 || module == "" || action.IsZero() || resource.IsZero() {
		return false
	}
	return set.Contains(Permission{Module: module, Action: action, Resource: resource}) ||
		set.Contains(Permission{Module: module, Action: AllActions, Resource: AnyResource}) ||
		set.Contains(Permission{Module: module, Action: action, Resource: AnyResource}) ||
		set.Contains(SystemWildcard)
}

// SatisfiesPermission is Satisfies for a requirement expressed as a Permission.
func SatisfiesPermission(set PermissionSet, required Permission) bool {
	return Satisfies(set, required.Module, required.Action, required.Resource)
}
