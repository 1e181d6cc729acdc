package domain

import (
	"testing"

	"shipyard/testutil"
)

func TestDomainDoesNotImportInternal(t *testing.T) {
	testutil.AssertNoDirectImports(t, ".", testutil.AnyOf(testutil.InternalImportForbidden, testutil.DriverImportForbidden),
		"domain types must stay free of service and storage packages")
}
