package snapshot

import "strings"

// SplitRef splits a dotted foreign key reference such as "public.users.id".
func SplitRef(ref string) []string {
	return strings.Split(ref, ".")
}
