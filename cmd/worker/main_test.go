package main

import (
	"testing"

	"github.com/odyssey-erp/mnledger/internal/app"
	_ "github.com/odyssey-erp/mnledger/testing"
)

func TestMainSkipsStartupInTestMode(t *testing.T) {
	app.RefreshTestMode()
	if !app.InTestMode() {
		t.Fatal("expected test mode to be enabled by the testing package")
	}
	main()
}
