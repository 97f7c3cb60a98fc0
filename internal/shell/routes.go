// Package shell owns the page routing policy and the per-user display
// preferences of the web application
package shell

import (
	"net/url"
	"strings"
)

// Page paths
const (
	PathHome      = "/"
	PathLogin     = "/login"
	PathSignup    = "/signup"
	PathCallback  = "/callback"
	PathError     = "/error"
	PathDashboard = "/dashboard"
)

// RedirectParam is the query parameter carrying the originally requested path
const RedirectParam = "redirect"

// Action tells the page what to do with the current request
type Action int

const (
	Stay Action = iota
	Navigate
)

func (a Action) String() string {
	if a == Navigate {
		return "navigate"
	}
	return "stay"
}

// Decision is the outcome of the redirect policy
type Decision struct {
	Action Action
	Target string
}

// IsAuthPath reports whether path is one of the login, signup, callback or
// error pages
func IsAuthPath(path string) bool {
	switch strings.TrimSuffix(path, "/") {
	case PathLogin, PathSignup, PathCallback, PathError:
		return true
	}
	return false
}

// IsPublicPath reports whether anonymous users may view path without
// being sent to the login page
func IsPublicPath(path string) bool {
	return path == PathHome
}

// SafeRedirect reports whether target is a local path that can be used as
// a redirect target. Absolute URLs, scheme-relative URLs and backslash
// tricks are refused.
func SafeRedirect(target string) bool {
	if target == "" || !strings.HasPrefix(target, "/") {
		return false
	}
	if strings.HasPrefix(target, "//") || strings.ContainsAny(target, "\\\r\n") {
		return false
	}
	u, err := url.Parse(target)
	if err != nil {
		return false
	}
	return u.Scheme == "" && u.Host == "" && u.User == nil
}

func withRedirect(page, target string) string {
	return page + "?" + url.Values{RedirectParam: {target}}.Encode()
}

// Decide applies the redirect policy. redirect is the value of the redirect
// query parameter and is ignored unless it is a safe local path.
//
//	auth page,     signed in,  redirect      -> redirect
//	auth page,     signed in,  no redirect   -> /dashboard
//	other page,    signed in                 -> stay
//	other page,    anonymous                 -> /login?redirect=path
//	auth page,     anonymous,  redirect to a non-auth page -> /login?redirect=...
//	auth page,     anonymous,  otherwise     -> stay
//
// The landing page is public. An anonymous user already on /login stays.
func Decide(path, redirect string, authenticated bool) Decision {
	if !SafeRedirect(redirect) {
		redirect = ""
	}
	auth := IsAuthPath(path)

	switch {
	case auth && authenticated && redirect != "":
		return Decision{Action: Navigate, Target: redirect}
	case auth && authenticated:
		return Decision{Action: Navigate, Target: PathDashboard}
	case authenticated:
		return Decision{Action: Stay}
	case !auth && IsPublicPath(path):
		return Decision{Action: Stay}
	case !auth:
		return Decision{Action: Navigate, Target: withRedirect(PathLogin, path)}
	case redirect != "" && !IsAuthPath(redirectPath(redirect)) && path != PathLogin:
		return Decision{Action: Navigate, Target: withRedirect(PathLogin, redirect)}
	default:
		return Decision{Action: Stay}
	}
}

func redirectPath(target string) string {
	if u, err := url.Parse(target); err == nil {
		return u.Path
	}
	return target
}
