package config

import "fmt"

// DefaultProject is the index of the project used when no task is given.
const DefaultProject = 1

// Projects are the built-in task ideas, selectable by index.
var Projects = []string{
	"a function that calculates the factorial of a number",
	"Implement a basic calculator that can perform addition, subtraction, multiplication, and division",
	"Create a simple text-based adventure game",
	"Develop a program to convert temperatures between Celsius and Fahrenheit",
	"Build a command-line todo list manager",
	"Write a program to generate and print the Fibonacci sequence",
	"Implement a basic encryption/decryption tool using Caesar cipher",
	"Create a simple guessing game where the computer picks a random number",
	"Develop a program to check if a given string is a palindrome",
	"Build a basic text editor that can create, read, and modify files",
	"Implement a simple sorting algorithm (e.g., bubble sort, insertion sort) and visualize its steps",
}

// Project returns the built-in project at index i (zero-based).
func Project(i int) (string, error) {
	if i < 0 || i >= len(Projects) {
		return "", fmt.Errorf("project index %d out of range [0, %d]", i, len(Projects)-1)
	}
	return Projects[i], nil
}
