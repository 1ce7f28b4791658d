// Command safetyhubctl runs SafetyHub analytics from the shell with staff
// scope, against the same database and configuration as the server.
package main

func main() {
	Execute()
}
