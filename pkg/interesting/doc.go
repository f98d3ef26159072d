// SPDX-License-Identifier: MPL-2.0

// Package interesting models "interesting paths": tool and SDK installations
// discovered on the host, each tagged with an architecture and a version.
//
// A Probe (the platform collaborator) reports every candidate it finds. The
// candidates are stored unfiltered in a Catalog, built once per session. Two
// read-only queries sit on top of the catalog:
//
//   - ResolveLatest reduces every name to the highest-versioned entry for one
//     architecture. Names without a matching entry are simply absent.
//   - LatestPathWithArchitecture does the same for a single name and reports
//     UnknownInterestingPathNameError or NoMatchingArchitectureError instead
//     of an absent result.
//
// When two entries carry the same version, the one reported first by the
// probe wins.
package interesting
