// Command seed populates a development database with demo accounts, students,
// and a small course catalog so the API is usable immediately after startup.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/schedexpress/schedexpress-api/internal/models"
	"github.com/schedexpress/schedexpress-api/internal/repository"
	"github.com/schedexpress/schedexpress-api/pkg/config"
	"github.com/schedexpress/schedexpress-api/pkg/database"
)

type seedUser struct {
	email      string
	name       string
	role       models.UserRole
	gradeLevel int
}

var users = []seedUser{
	{email: "admin@schedexpress.test", name: "Avery Admin", role: models.RoleAdmin},
	{email: "counselor@schedexpress.test", name: "Casey Counselor", role: models.RoleCounselor},
	{email: "jordan@schedexpress.test", name: "Jordan Lee", role: models.RoleStudent, gradeLevel: 10},
	{email: "riley@schedexpress.test", name: "Riley Chen", role: models.RoleStudent, gradeLevel: 11},
	{email: "sam@schedexpress.test", name: "Sam Ortiz", role: models.RoleStudent, gradeLevel: 9},
}

var courses = []models.Course{
	{CourseCode: "MATH101", Name: "Algebra I", Description: "Introductory algebra", Period: 1, Capacity: 30},
	{CourseCode: "MATH201", Name: "Algebra II", Description: "Second-year algebra", Period: 2, Capacity: 30},
	{CourseCode: "ENG101", Name: "English I", Description: "Composition and literature", Period: 3, Capacity: 32},
	{CourseCode: "SCI101", Name: "Biology", Description: "Introductory biology with lab", Period: 4, Capacity: 24},
	{CourseCode: "HIST101", Name: "World History", Description: "Ancient to modern civilizations", Period: 5, Capacity: 35},
	{CourseCode: "ART100", Name: "Studio Art", Description: "Drawing and painting fundamentals", Period: 4, Capacity: 20},
}

func main() {
	var password string
	flag.StringVar(&password, "password", "changeme123", "Password assigned to every seeded account")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("failed to hash password: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	courseRepo := repository.NewCourseRepository(db)

	for _, su := range users {
		if existing, err := userRepo.FindByEmail(ctx, su.email); err == nil && existing != nil {
			log.Printf("user %s already present, skipping", su.email)
			continue
		}
		user := &models.User{
			Email:        su.email,
			PasswordHash: string(hash),
			Name:         su.name,
			Role:         su.role,
		}
		if err := userRepo.Create(ctx, user); err != nil {
			log.Fatalf("failed to create user %s: %v", su.email, err)
		}
		if su.role == models.RoleStudent {
			student := &models.Student{UserID: user.ID, GradeLevel: su.gradeLevel}
			if err := studentRepo.Create(ctx, student); err != nil {
				log.Fatalf("failed to create student for %s: %v", su.email, err)
			}
		}
		log.Printf("created %s (%s)", su.email, su.role)
	}

	for i := range courses {
		course := courses[i]
		if err := courseRepo.Create(ctx, &course); err != nil {
			log.Fatalf("failed to create course %s: %v", course.CourseCode, err)
		}
		log.Printf("created course %s", course.CourseCode)
	}

	log.Println("seed complete")
}
