/*
package httpz provides small helpers above net/http shared by the proxy
adapter and the control surface.

The name is chosen to avoid colliding with net/http/httputil which is
referenced for a few things within crucible.
*/
package httpz
