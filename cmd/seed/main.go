package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/joho/godotenv"

	"github.com/gradeflow/gradeflow/database"
	"github.com/gradeflow/gradeflow/model"
)

// Seeds a few sample answer keys so a fresh environment can grade the
// bundled example scans without manual setup.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	store, err := database.StartGORM()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	separator := strings.Repeat("=", 60)
	fmt.Println(separator)
	fmt.Println("GradeFlow - Answer Key Seeding")
	fmt.Println(separator)

	answerKeys := database.NewAnswerKeyStore(store.DB())
	ctx := context.Background()

	for examID, answers := range sampleKeys {
		entries := make([]model.AnswerKeyEntry, len(answers))
		for i, answer := range answers {
			entries[i] = model.AnswerKeyEntry{
				ExamID:         examID,
				QuestionNumber: i + 1,
				CorrectAnswer:  answer,
				Points:         1,
			}
		}
		if err := answerKeys.UpsertEntries(ctx, entries); err != nil {
			log.Fatalf("Seeding failed for %s: %v", examID, err)
		}
		fmt.Printf("  %s: %d questions\n", examID, len(entries))
	}

	fmt.Println(separator)
	fmt.Println("Seeding completed successfully")
}

var sampleKeys = map[string][]string{
	"MATH-101": {"A", "C", "B", "D", "A", "B", "C", "A", "D", "B"},
	"PHY-204":  {"B", "B", "A", "C", "D"},
	"CS-301":   {"D", "A", "C", "C", "B", "A", "D", "B"},
}
