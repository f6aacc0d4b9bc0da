// Package catalog reads LMS-owned course, user and progress documents.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/learnhub/lms-backend/internal/model"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrNotFound is returned when a course or user document is absent.
var ErrNotFound = errors.New("catalog document not found")

type lectureDoc struct {
	LectureID string `bson:"lectureId"`
}

type chapterDoc struct {
	ChapterContent []lectureDoc `bson:"chapterContent"`
}

type courseDoc struct {
	ID               bson.ObjectID `bson:"_id"`
	Title            string        `bson:"courseTitle"`
	Thumbnail        string        `bson:"courseThumbnail"`
	Educator         string        `bson:"educator"`
	CourseContent    []chapterDoc  `bson:"courseContent"`
	EnrolledStudents []string      `bson:"enrolledStudents"`
}

func (d courseDoc) toModel() *model.Course {
	total := 0
	for _, ch := range d.CourseContent {
		total += len(ch.ChapterContent)
	}
	return &model.Course{
		ID:               d.ID.Hex(),
		Title:            d.Title,
		Thumbnail:        d.Thumbnail,
		EducatorID:       d.Educator,
		TotalLectures:    total,
		EnrolledStudents: d.EnrolledStudents,
	}
}

type userDoc struct {
	ID              string          `bson:"_id"`
	Name            string          `bson:"name"`
	Email           string          `bson:"email"`
	ImageURL        string          `bson:"imageUrl"`
	EnrolledCourses []bson.ObjectID `bson:"enrolledCourses"`
}

func (d userDoc) toModel() *model.User {
	enrolled := make([]string, len(d.EnrolledCourses))
	for i, id := range d.EnrolledCourses {
		enrolled[i] = id.Hex()
	}
	return &model.User{
		ID:              d.ID,
		Name:            d.Name,
		Email:           d.Email,
		ImageURL:        d.ImageURL,
		EnrolledCourses: enrolled,
	}
}

type progressDoc struct {
	LectureCompleted []string `bson:"lectureCompleted"`
}

// MongoCatalog reads the LMS collections.
type MongoCatalog struct {
	courses  *mongo.Collection
	users    *mongo.Collection
	progress *mongo.Collection
}

// NewMongoCatalog binds the catalog to the LMS database.
func NewMongoCatalog(db *mongo.Database) *MongoCatalog {
	return &MongoCatalog{
		courses:  db.Collection("courses"),
		users:    db.Collection("users"),
		progress: db.Collection("courseprogresses"),
	}
}

// ParseCourseID validates a 24-hex course id.
func ParseCourseID(id string) (bson.ObjectID, error) {
	oid, err := bson.ObjectIDFromHex(id)
	if err != nil {
		return bson.ObjectID{}, fmt.Errorf("invalid course id %q: %w", id, err)
	}
	return oid, nil
}

// GetCourse loads a course with its lecture count.
func (c *MongoCatalog) GetCourse(ctx context.Context, courseID string) (*model.Course, error) {
	oid, err := ParseCourseID(courseID)
	if err != nil {
		return nil, err
	}

	opts := options.FindOne().SetProjection(bson.D{
		{Key: "courseTitle", Value: 1},
		{Key: "courseThumbnail", Value: 1},
		{Key: "educator", Value: 1},
		{Key: "courseContent.chapterContent.lectureId", Value: 1},
		{Key: "enrolledStudents", Value: 1},
	})

	var doc courseDoc
	if err := c.courses.FindOne(ctx, bson.M{"_id": oid}, opts).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find course: %w", err)
	}
	return doc.toModel(), nil
}

// ListEducatorCourses returns the courses owned by an educator.
func (c *MongoCatalog) ListEducatorCourses(ctx context.Context, educatorID string) ([]model.Course, error) {
	opts := options.Find().
		SetProjection(bson.M{"courseTitle": 1, "courseThumbnail": 1, "educator": 1, "enrolledStudents": 1}).
		SetSort(bson.M{"createdAt": -1})

	cursor, err := c.courses.Find(ctx, bson.M{"educator": educatorID}, opts)
	if err != nil {
		return nil, fmt.Errorf("find educator courses: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []courseDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode educator courses: %w", err)
	}

	courses := make([]model.Course, len(docs))
	for i, d := range docs {
		courses[i] = *d.toModel()
	}
	return courses, nil
}

// GetUser loads a user profile.
func (c *MongoCatalog) GetUser(ctx context.Context, userID string) (*model.User, error) {
	var doc userDoc
	if err := c.users.FindOne(ctx, bson.M{"_id": userID}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	return doc.toModel(), nil
}

// GetUsers loads several profiles keyed by id. Unknown ids are absent from the map.
func (c *MongoCatalog) GetUsers(ctx context.Context, userIDs []string) (map[string]*model.User, error) {
	out := make(map[string]*model.User, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}

	cursor, err := c.users.Find(ctx, bson.M{"_id": bson.M{"$in": userIDs}})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var doc userDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode user: %w", err)
		}
		out[doc.ID] = doc.toModel()
	}
	return out, cursor.Err()
}

// IsEnrolled reports whether courseID is in the user's enrolled-course set.
func (c *MongoCatalog) IsEnrolled(ctx context.Context, userID, courseID string) (bool, error) {
	oid, err := ParseCourseID(courseID)
	if err != nil {
		return false, err
	}

	n, err := c.users.CountDocuments(ctx, bson.M{"_id": userID, "enrolledCourses": oid})
	if err != nil {
		return false, fmt.Errorf("count enrollment: %w", err)
	}
	return n > 0, nil
}

// CompletedLectures returns the lecture ids the user has finished in a course.
func (c *MongoCatalog) CompletedLectures(ctx context.Context, userID, courseID string) ([]string, error) {
	var doc progressDoc
	err := c.progress.FindOne(ctx, bson.M{"userId": userID, "courseId": courseID}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, fmt.Errorf("find progress: %w", err)
	}
	return doc.LectureCompleted, nil
}
