package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/newslens-hq/newslens-backend/internal/domain"
)

const (
	usersCollection        = "users"
	readArticlesCollection = "read_articles"
)

// FirestoreStore implements Store on Cloud Firestore.
type FirestoreStore struct {
	client *firestore.Client
}

// NewFirestore connects to the project's Firestore database. An empty
// credentialsFile falls back to application default credentials.
func NewFirestore(ctx context.Context, projectID, credentialsFile string) (*FirestoreStore, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}

	client, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create firestore client: %w", err)
	}
	return &FirestoreStore{client: client}, nil
}

// Close releases the underlying client.
func (s *FirestoreStore) Close() error { return s.client.Close() }

func (s *FirestoreStore) CreateUser(ctx context.Context, user domain.User) (domain.User, error) {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.LastLogin = now

	ref := s.client.Collection(usersCollection).NewDoc()
	if _, err := ref.Set(ctx, user); err != nil {
		return domain.User{}, fmt.Errorf("create user: %w", err)
	}

	user.ID = ref.ID
	return user, nil
}

func (s *FirestoreStore) UserByEmail(ctx context.Context, email string) (domain.User, error) {
	iter := s.client.Collection(usersCollection).
		Where("email", "==", email).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	doc, err := iter.Next()
	if err == iterator.Done {
		return domain.User{}, ErrNotFound
	}
	if err != nil {
		return domain.User{}, fmt.Errorf("query user by email: %w", err)
	}

	return decodeUser(doc)
}

func (s *FirestoreStore) UserByID(ctx context.Context, id string) (domain.User, error) {
	doc, err := s.client.Collection(usersCollection).Doc(id).Get(ctx)
	if err != nil {
		return domain.User{}, ErrNotFound
	}
	return decodeUser(doc)
}

func (s *FirestoreStore) UpdateUser(ctx context.Context, id string, updates map[string]any) (domain.User, error) {
	ref := s.client.Collection(usersCollection).Doc(id)

	fields := make([]firestore.Update, 0, len(updates))
	for key, value := range updates {
		fields = append(fields, firestore.Update{Path: key, Value: value})
	}

	if _, err := ref.Update(ctx, fields); err != nil {
		return domain.User{}, fmt.Errorf("update user: %w", err)
	}
	return s.UserByID(ctx, id)
}

func (s *FirestoreStore) TouchLastLogin(ctx context.Context, id string) error {
	_, err := s.client.Collection(usersCollection).Doc(id).Update(ctx, []firestore.Update{
		{Path: "last_login", Value: time.Now().UTC()},
	})
	if err != nil {
		return fmt.Errorf("touch last login: %w", err)
	}
	return nil
}

type readArticle struct {
	UserID     string    `firestore:"user_id"`
	ArticleURL string    `firestore:"article_url"`
	ReadAt     time.Time `firestore:"read_at"`
}

// MarkRead records the article as read once; marking an already-read
// article is a no-op.
func (s *FirestoreStore) MarkRead(ctx context.Context, userID, articleURL string) error {
	iter := s.client.Collection(readArticlesCollection).
		Where("user_id", "==", userID).
		Where("article_url", "==", articleURL).
		Limit(1).
		Documents(ctx)
	defer iter.Stop()

	if _, err := iter.Next(); err == nil {
		return nil
	} else if err != iterator.Done {
		return fmt.Errorf("check read article: %w", err)
	}

	_, _, err := s.client.Collection(readArticlesCollection).Add(ctx, readArticle{
		UserID:     userID,
		ArticleURL: articleURL,
		ReadAt:     time.Now().UTC(),
	})
	if err != nil {
		return fmt.Errorf("mark article read: %w", err)
	}
	return nil
}

func (s *FirestoreStore) ReadURLs(ctx context.Context, userID string) ([]string, error) {
	iter := s.client.Collection(readArticlesCollection).
		Where("user_id", "==", userID).
		Documents(ctx)
	defer iter.Stop()

	var urls []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list read articles: %w", err)
		}

		var rec readArticle
		if err := doc.DataTo(&rec); err != nil {
			continue
		}
		urls = append(urls, rec.ArticleURL)
	}
	return urls, nil
}

func decodeUser(doc *firestore.DocumentSnapshot) (domain.User, error) {
	var user domain.User
	if err := doc.DataTo(&user); err != nil {
		return domain.User{}, fmt.Errorf("decode user: %w", err)
	}
	user.ID = doc.Ref.ID
	return user, nil
}
