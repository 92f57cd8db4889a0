package api

import _ "embed"

// dashboardHTML is the operations page served at /dashboard.
//
//go:embed static/dashboard.html
var dashboardHTML []byte
