// Package larder provides the search-and-cache core of a self-hosted recipe
// manager. It fans recipe searches out to configured cooking sites, parses
// their result pages, tracks per-site health, and caches remote images locally.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, goquery/, gemini/).
package larder
