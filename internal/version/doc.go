// Package version models artifact and package versions of the form
// major.minor.micro[.qualifier], along with the interval notation used when
// querying repositories ("[1.0.0,2.0.0)").
//
// Severity-driven bumps go through Masterminds/semver so the numeric core is
// incremented with the same rules every other tool in the chain uses.
package version
