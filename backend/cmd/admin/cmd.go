package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gosimple/slug"
	"github.com/urfave/cli/v2"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/aimastery/academy/backend/database"
	"github.com/aimastery/academy/backend/models"
	"github.com/aimastery/academy/backend/utils"
)

type commandLine struct {
	db  *gorm.DB
	out io.Writer
}

func (cl *commandLine) app() *cli.App {
	return &cli.App{
		Name:  "admin",
		Usage: "maintenance tasks for the academy backend",
		// main prints the error once
		ExitErrHandler: func(*cli.Context, error) {},
		Writer:         cl.out,
		Commands: []*cli.Command{
			{
				Name:   "migrate",
				Usage:  "create or update tables and seed badges",
				Action: cl.migrate,
			},
			{
				Name:   "seed-demo",
				Usage:  "create a published demo course with one module per tier",
				Action: cl.seedDemo,
			},
			{
				Name:  "create-admin",
				Usage: "create an administrator account",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Required: true},
					&cli.StringFlag{Name: "email", Required: true},
					&cli.StringFlag{Name: "password", Required: true, EnvVars: []string{"ADMIN_PASSWORD"}},
				},
				Action: cl.createAdmin,
			},
			{
				Name:  "set-tier",
				Usage: "change a user's tier",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "user", Required: true, Usage: "username or email"},
					&cli.StringFlag{Name: "tier", Required: true, Usage: "free, starter, pro or master"},
				},
				Action: cl.setTier,
			},
		},
	}
}

func (cl *commandLine) migrate(c *cli.Context) error {
	if err := database.Migrate(cl.db); err != nil {
		return err
	}
	if err := database.Seed(c.Context, cl.db); err != nil {
		return err
	}
	fmt.Fprintln(cl.out, "migrations applied")
	return nil
}

type createAdminInput struct {
	Username string `validate:"required,min=3,max=50"`
	Email    string `validate:"required,email"`
	Password string `validate:"required,min=8"`
}

func (cl *commandLine) createAdmin(c *cli.Context) error {
	input := createAdminInput{
		Username: strings.TrimSpace(c.String("username")),
		Email:    strings.ToLower(strings.TrimSpace(c.String("email"))),
		Password: c.String("password"),
	}
	if errs := utils.ValidateStruct(input); errs != nil {
		return fmt.Errorf("invalid input: %v", errs)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user := models.User{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: string(hash),
		Tier:         models.TierMaster,
		IsAdmin:      true,
	}
	if err := cl.db.WithContext(c.Context).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("username or email already taken")
		}
		return err
	}
	fmt.Fprintf(cl.out, "admin %s created (id %d)\n", user.Username, user.ID)
	return nil
}

func (cl *commandLine) setTier(c *cli.Context) error {
	tier, ok := models.ParseTier(c.String("tier"))
	if !ok {
		return fmt.Errorf("unknown tier %q", c.String("tier"))
	}
	login := strings.TrimSpace(c.String("user"))

	var user models.User
	err := cl.db.WithContext(c.Context).
		Where("username = ? OR email = ?", login, strings.ToLower(login)).
		First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("user %q not found", login)
	}
	if err != nil {
		return err
	}
	if err := cl.db.WithContext(c.Context).Model(&user).Update("tier", tier).Error; err != nil {
		return err
	}
	fmt.Fprintf(cl.out, "%s is now on the %s tier\n", user.Username, tier)
	return nil
}

const demoCourseTitle = "Prompt Engineering Foundations"

func (cl *commandLine) seedDemo(c *cli.Context) error {
	db := cl.db.WithContext(c.Context)
	courseSlug := slug.Make(demoCourseTitle)

	var existing int64
	if err := db.Model(&models.Course{}).Where("slug = ?", courseSlug).Count(&existing).Error; err != nil {
		return err
	}
	if existing > 0 {
		fmt.Fprintf(cl.out, "course %s already exists\n", courseSlug)
		return nil
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		course := models.Course{
			Title:       demoCourseTitle,
			Slug:        courseSlug,
			Description: "From your first prompt to production workflows.",
			Published:   true,
		}
		if err := tx.Create(&course).Error; err != nil {
			return err
		}
		for i, tier := range models.AllTiers {
			module := models.Module{
				CourseID:     course.ID,
				Title:        fmt.Sprintf("Level %d", i+1),
				RequiredTier: tier,
				Order:        i,
			}
			if err := tx.Create(&module).Error; err != nil {
				return err
			}
			for j := 0; j < 2; j++ {
				lesson := models.Lesson{
					ModuleID:        module.ID,
					Title:           fmt.Sprintf("Lesson %d.%d", i+1, j+1),
					Content:         "Write a prompt, read the answer, refine the prompt.",
					DurationMinutes: 10,
					Order:           j,
				}
				if err := tx.Create(&lesson).Error; err != nil {
					return err
				}
				if j > 0 {
					continue
				}
				quiz := models.Quiz{LessonID: lesson.ID, Title: "Checkpoint", PassingScore: 70}
				if err := tx.Create(&quiz).Error; err != nil {
					return err
				}
				question := models.Question{
					QuizID:       quiz.ID,
					Prompt:       "What should you do when an answer misses the point?",
					Options:      datatypes.JSON(`["Give up","Refine the prompt","Ask the same thing again"]`),
					CorrectIndex: 1,
					Explanation:  "Iterating on the prompt is the core loop.",
				}
				if err := tx.Create(&question).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(cl.out, "course %s created\n", courseSlug)
	return nil
}
