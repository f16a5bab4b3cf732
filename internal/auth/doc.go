// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

/*
Package auth authenticates operators of the admin API.

There is a single configured admin account. POST /api/v1/auth/login takes
HTTP Basic credentials, checks them against a bcrypt hash (BasicAuthManager)
and returns an HS256 JWT (JWTManager). Admin routes then require the token
as "Authorization: Bearer <token>" or in the paysync_token cookie
(Middleware.Authenticate). Role checks on top of authentication live in
package authz.

End users of the payment endpoints are not authenticated here; their
requests are bound to an order id and verified against the gateway.
*/
package auth
