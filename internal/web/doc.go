// Package web serves the browser front end of linkharvest.
//
// The front end is a single form taking a seed URL and a link cap. Submitting
// it runs a harvest and redirects to a result page, from which the new links
// can be downloaded as a text file. The server also exposes /healthz and,
// when a metrics collector is configured, /metrics.
package web
