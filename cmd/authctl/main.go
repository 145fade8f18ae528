// authctl is the operator CLI for the auth service: session sweeps, user revocation and
// session policy inspection.
package main

import "social-tippster/backend/cmd/authctl/cmd"

func main() {
	cmd.Execute()
}
