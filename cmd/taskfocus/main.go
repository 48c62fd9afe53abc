package main

import "github.com/nhle/task-focus/cmd/taskfocus/root"

func main() {
	root.Execute()
}
