// Package ticket manages the work-item queue: incidents, requests, and
// scheduled maintenance raised against data center infrastructure.
//
// Tickets move through open -> assigned -> in_progress -> resolved ->
// closed. Transitions into resolved or closed stamp resolved_at once;
// reopening clears the stamp. Requester and assignee reference users and
// survive user deletion as detached IDs.
package ticket
