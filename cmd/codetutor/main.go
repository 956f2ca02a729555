// codetutor - coding tutor backend.
package main

func main() {
	Execute()
}
