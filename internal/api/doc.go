// Paysync - Payment Reconciliation Engine
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/paysync

/*
Package api exposes the payment entry paths and the admin surface over HTTP.

Every payment path funnels into the reconciliation engine and differs only in
trust and in what it returns:

  - Webhook: the signature is verified over the raw body before anything
    else. Any accepted delivery gets 200 with a WebhookAck, whatever the
    reconciliation outcome; only a bad or missing signature and a malformed
    payload get 400.
  - Redirect: the browser lands here after checkout and is always sent on
    with a 302. The destination carries payment=success, failed or pending;
    faults become pending.
  - Poll and retry: JSON StatusResponse for the checkout front end. Poll
    short-circuits on a settled ledger entry; retry always asks the gateway.

Quarantined orders can be explained by the customer through the ticket
endpoint, which stores evidence files in the evidence store and keeps only
their references.

Admin routes live under /api/v1/admin. They need a bearer token (or the
paysync_token cookie for the websocket feed) obtained from /api/v1/auth/login
and are authorized per role by Casbin.

Logins, resolutions, tickets, evidence reads and retries are recorded on the
audit trail, which admins read back from /api/v1/admin/audit as JSON or CEF.

# Response Format

Envelope endpoints use models.APIResponse:

	{
	  "status": "success",
	  "data": {...},
	  "metadata": {"timestamp": "2026-10-14T12:00:00Z", "request_id": "..."}
	}

The gateway-facing webhook ack and the status contract are written bare
because their consumers predate the envelope.

# Swagger

Handlers carry swag annotations; the generated document is served at
/swagger/doc.json with the UI under /swagger/.
*/
package api
