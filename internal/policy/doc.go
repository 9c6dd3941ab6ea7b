// Package policy holds the tenant access rules: which modules a user may
// see, who may change tenant state and when a membership change would leave
// a tenant without an owner. Everything here is pure; callers load the
// inputs fresh for each request.
package policy
